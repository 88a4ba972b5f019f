package service_test

import (
	"context"
	"errors"
	"sync"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/mailer"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

// MockTransport records every message and fails for addresses in FailFor.
type MockTransport struct {
	mu       sync.Mutex
	OpenErr  error
	FailFor  map[string]error
	StallFor map[string]bool // Send blocks until its context is done
	Opened   int
	Closed   int
	Messages []mailer.Message
	Bodies   [][]byte // attachment bytes as seen by each send
}

func (m *MockTransport) Name() string { return "mock" }

func (m *MockTransport) Open(_ context.Context, creds model.Credentials) (mailer.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, appErrors.NewTransportSetup(creds.Account, m.OpenErr)
	}
	m.Opened++
	return &mockSession{t: m}, nil
}

type mockSession struct {
	t *MockTransport
}

func (s *mockSession) Send(ctx context.Context, msg mailer.Message) error {
	s.t.mu.Lock()
	s.t.Messages = append(s.t.Messages, msg)
	if msg.Attachment != nil {
		s.t.Bodies = append(s.t.Bodies, append([]byte(nil), msg.Attachment.Content...))
	}
	failErr, fail := s.t.FailFor[msg.To]
	stall := s.t.StallFor[msg.To]
	s.t.mu.Unlock()

	if stall {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail {
		return appErrors.NewDelivery(msg.To, false, failErr)
	}
	return ctx.Err()
}

func (s *mockSession) Close() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.t.Closed++
	return nil
}

// MockDeliveryLog keeps appended records in memory.
type MockDeliveryLog struct {
	mu      sync.Mutex
	Records []model.DeliveryRecord
	Err     error
}

func (m *MockDeliveryLog) Append(_ context.Context, rec *model.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	rec.ID = int64(len(m.Records) + 1)
	m.Records = append(m.Records, *rec)
	return nil
}

var errRejected = errors.New("550 mailbox unavailable")
