// internal/mailer/log.go
package mailer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

// LogTransport logs messages instead of sending them. Used for dry runs.
type LogTransport struct {
	Logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{Logger: logger}
}

func (l *LogTransport) Name() string { return "log" }

func (l *LogTransport) Open(ctx context.Context, creds model.Credentials) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewTransportSetup(creds.Account, err)
	}
	l.Logger.InfoContext(ctx, "mailer: log session opened", slog.String("account", creds.Account))
	return &logSession{log: l.Logger, from: creds.Account}, nil
}

type logSession struct {
	log  *slog.Logger
	from string
}

// Send still builds the full MIME message so address errors surface the
// same way they would over SMTP.
func (s *logSession) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}
	if _, err := BuildMessage(msg); err != nil {
		return appErrors.NewDelivery(msg.To, false, err)
	}

	attrs := []any{
		slog.String("provider", "log"),
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("html_length", len(msg.HTML)),
		slog.String("fake_message_id", uuid.NewString()),
	}
	if msg.Attachment != nil {
		attrs = append(attrs, slog.String("attachment", msg.Attachment.Filename), slog.Int("attachment_size", len(msg.Attachment.Content)))
	}
	s.log.InfoContext(ctx, "mailer: email logged (not sent)", attrs...)
	return nil
}

func (s *logSession) Close() error { return nil }

var _ Transport = (*LogTransport)(nil)
