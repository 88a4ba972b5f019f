// internal/logger/logger.go
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxKey struct{ name string }

var runIDKey = ctxKey{"run_id"}

// ContextExtractor pulls a log attribute out of a context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// WithRunID tags ctx so every record logged with it carries run_id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

func RunIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id, ok := RunIDFromContext(ctx); ok {
		return slog.String("run_id", id), true
	}
	return slog.Attr{}, false
}

// New creates a JSON logger on stdout that injects the run id.
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewDecorator(h, RunIDExtractor))
}

// Discard is used by tests and tools that don't care about output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type decorator struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func NewDecorator(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	clean := make([]ContextExtractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	return &decorator{next: next, extractors: clean}
}

func (h *decorator) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *decorator) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *decorator) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &decorator{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *decorator) WithGroup(name string) slog.Handler {
	return &decorator{next: h.next.WithGroup(name), extractors: h.extractors}
}
