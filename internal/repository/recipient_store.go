// internal/repository/recipient_store.go
package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

// RecipientStore holds cleaned lead lists between upload and send.
type RecipientStore interface {
	Save(ctx context.Context, list *model.RecipientList) error
	Get(ctx context.Context, id string) (*model.RecipientList, error)
}

type MemoryRecipientStore struct {
	mu    sync.RWMutex
	lists map[string]model.RecipientList
	now   func() time.Time
}

func NewMemoryRecipientStore() *MemoryRecipientStore {
	return &MemoryRecipientStore{lists: map[string]model.RecipientList{}, now: time.Now}
}

// Save assigns an id and creation time when missing and stores a copy.
func (s *MemoryRecipientStore) Save(_ context.Context, list *model.RecipientList) error {
	prepareList(list, s.now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[list.ID] = copyList(*list)
	return nil
}

func (s *MemoryRecipientStore) Get(_ context.Context, id string) (*model.RecipientList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[id]
	if !ok {
		return nil, appErrors.NewListNotFound(id)
	}
	out := copyList(list)
	return &out, nil
}

func prepareList(list *model.RecipientList, now func() time.Time) {
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = now().UTC()
	}
}

// copyList keeps callers from mutating stored rows mid-run.
func copyList(in model.RecipientList) model.RecipientList {
	out := in
	out.Recipients = make([]model.Recipient, len(in.Recipients))
	for i, r := range in.Recipients {
		if r.Extra != nil {
			extra := make(map[string]string, len(r.Extra))
			for k, v := range r.Extra {
				extra[k] = v
			}
			r.Extra = extra
		}
		out.Recipients[i] = r
	}
	if in.Segments != nil {
		out.Segments = make(map[string]int, len(in.Segments))
		for k, v := range in.Segments {
			out.Segments[k] = v
		}
	}
	return out
}

var _ RecipientStore = (*MemoryRecipientStore)(nil)
