// internal/mailer/text.go
package mailer

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	blockTags   = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/h[1-6]|/li|/tr)\s*/?>`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
)

// PlainText derives the text/plain alternative from a rendered HTML body.
func PlainText(body string) string {
	withBreaks := blockTags.ReplaceAllString(body, "$0\n")
	text := html.UnescapeString(stripPolicy.Sanitize(withBreaks))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(l, " "))
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n"))
}
