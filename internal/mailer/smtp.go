// internal/mailer/smtp.go
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/wneessen/go-mail"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

type SMTPConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
	// TLSPolicy defaults to mandatory STARTTLS.
	TLSPolicy mail.TLSPolicy
}

// SMTPTransport relays through an authenticated SMTP submission server.
type SMTPTransport struct {
	cfg SMTPConfig
	log *slog.Logger
}

func NewSMTPTransport(cfg SMTPConfig, log *slog.Logger) *SMTPTransport {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{cfg: cfg, log: log}
}

func (t *SMTPTransport) Name() string { return "smtp" }

// Open dials and authenticates once. Every later command re-arms the
// connection deadline, so a stalled relay fails within Timeout.
func (t *SMTPTransport) Open(ctx context.Context, creds model.Credentials) (Session, error) {
	if err := mail.NewMsg().From(creds.Account); err != nil {
		return nil, appErrors.NewTransportSetup(creds.Account, err)
	}

	client, err := mail.NewClient(t.cfg.Host,
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
		mail.WithTLSPolicy(t.cfg.TLSPolicy),
		mail.WithoutNoop(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(creds.Account),
		mail.WithPassword(creds.Secret),
	)
	if err != nil {
		return nil, appErrors.NewTransportSetup(creds.Account, err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		return nil, appErrors.NewTransportSetup(creds.Account, err)
	}

	t.log.InfoContext(ctx, "smtp session opened",
		slog.String("host", t.cfg.Host),
		slog.Int("port", t.cfg.Port),
		slog.String("account", creds.Account),
	)
	return &smtpSession{client: client, from: creds.Account, log: t.log}, nil
}

// errSessionAbandoned marks a session whose last command never answered.
var errSessionAbandoned = errors.New("smtp session abandoned after a timed out send")

type smtpSession struct {
	client *mail.Client
	from   string
	log    *slog.Logger
	// broken is set once a send was abandoned mid-command. The reply stream
	// can no longer be trusted, so every later send fails fast.
	broken bool
}

func (s *smtpSession) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}
	m, err := BuildMessage(msg)
	if err != nil {
		return appErrors.NewDelivery(msg.To, false, err)
	}
	if s.broken {
		return appErrors.NewDelivery(msg.To, true, errSessionAbandoned)
	}
	if err := ctx.Err(); err != nil {
		return appErrors.NewDelivery(msg.To, true, err)
	}

	done := make(chan error, 1)
	go func() { done <- s.client.Send(m) }()

	select {
	case err := <-done:
		if err != nil {
			return appErrors.NewDelivery(msg.To, isTemporary(err), err)
		}
		return nil
	case <-ctx.Done():
		// the abandoned command gives up at the connection deadline
		s.broken = true
		s.log.WarnContext(ctx, "smtp send abandoned, session unusable", slog.String("recipient", msg.To))
		return appErrors.NewDelivery(msg.To, true, ctx.Err())
	}
}

func (s *smtpSession) Close() error {
	if err := s.client.Close(); err != nil {
		s.log.Warn("smtp session close failed", slog.Any("err", err))
		return err
	}
	return nil
}

// BuildMessage assembles the MIME message: HTML body, a plain text
// alternative and the optional attachment read from its own reader.
func BuildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	m.AddAlternativeString(mail.TypeTextPlain, PlainText(msg.HTML))

	if a := msg.Attachment; a != nil {
		var opts []mail.FileOption
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		m.AttachReadSeeker(a.Filename, bytes.NewReader(a.Content), opts...)
	}
	return m, nil
}

func isTemporary(err error) bool {
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		return sendErr.IsTemp()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

var _ Transport = (*SMTPTransport)(nil)
