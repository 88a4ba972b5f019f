// internal/mailer/mailer.go
package mailer

import (
	"context"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

// Message is one personalized email. Attachment bytes are shared between
// messages of a run and must not be modified.
type Message struct {
	From       string
	To         string
	Subject    string
	HTML       string
	Attachment *model.Attachment
}

// Transport opens authenticated sessions against a mail backend.
type Transport interface {
	Name() string
	Open(ctx context.Context, creds model.Credentials) (Session, error)
}

// Session sends messages over one established connection. Close must be
// called once the run is over, whatever the outcome.
type Session interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}
