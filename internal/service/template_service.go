// internal/service/template_service.go
package service

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

//go:embed templates/email.html
var bundledTemplates embed.FS

// TemplateDefaults fill in recipient attributes that are absent or blank.
type TemplateDefaults struct {
	FirstName string
	LastName  string
	Company   string
}

func DefaultTemplateDefaults() TemplateDefaults {
	return TemplateDefaults{FirstName: "Friend", LastName: "", Company: "your company"}
}

// TemplateRenderer turns a shared HTML template into per-recipient bodies.
type TemplateRenderer struct {
	Defaults       TemplateDefaults
	SchedulingLink string
}

func NewTemplateRenderer(defaults TemplateDefaults, schedulingLink string) *TemplateRenderer {
	return &TemplateRenderer{Defaults: defaults, SchedulingLink: schedulingLink}
}

// DefaultTemplate returns the bundled email template.
func DefaultTemplate() string {
	b, err := bundledTemplates.ReadFile("templates/email.html")
	if err != nil {
		panic(fmt.Sprintf("bundled template missing: %v", err))
	}
	return string(b)
}

// CompiledTemplate is parsed once per run and rendered for every recipient.
type CompiledTemplate struct {
	tpl      *pongo2.Template
	renderer *TemplateRenderer
}

// Compile parses src with Jinja syntax. File-loading tags are banned so an
// uploaded template can only see the variables it is given.
func (r *TemplateRenderer) Compile(src string) (*CompiledTemplate, error) {
	if strings.TrimSpace(src) == "" {
		return nil, appErrors.NewTemplate(errors.New("template is empty"))
	}

	set := pongo2.NewSet("campaign", pongo2.NewFSLoader(bundledTemplates))
	for _, tag := range []string{"include", "import", "extends", "ssi"} {
		if err := set.BanTag(tag); err != nil {
			return nil, appErrors.NewTemplate(err)
		}
	}

	tpl, err := set.FromString(src)
	if err != nil {
		return nil, appErrors.NewTemplate(err)
	}
	return &CompiledTemplate{tpl: tpl, renderer: r}, nil
}

// Render substitutes the recipient's attributes. Output is deterministic for
// a given template and recipient.
func (c *CompiledTemplate) Render(rcpt model.Recipient) (string, error) {
	out, err := c.tpl.Execute(c.renderer.variables(rcpt))
	if err != nil {
		return "", appErrors.NewTemplate(err)
	}
	return out, nil
}

// Preview compiles and renders in one go for a single recipient.
func (r *TemplateRenderer) Preview(src string, rcpt model.Recipient) (string, error) {
	tpl, err := r.Compile(src)
	if err != nil {
		return "", err
	}
	return tpl.Render(rcpt)
}

func (r *TemplateRenderer) variables(rcpt model.Recipient) pongo2.Context {
	return pongo2.Context{
		"FirstName":    orDefault(rcpt.FirstName, r.Defaults.FirstName),
		"LastName":     orDefault(rcpt.LastName, r.Defaults.LastName),
		"Company":      orDefault(rcpt.Company, r.Defaults.Company),
		"CalendlyLink": r.SchedulingLink,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
