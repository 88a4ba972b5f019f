// internal/repository/recipient_store_redis.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

const recipientListKeyPrefix = "leadflow:list:"

// RedisRecipientStore keeps lists as JSON blobs that expire after TTL.
type RedisRecipientStore struct {
	Client *redis.Client
	TTL    time.Duration
	now    func() time.Time
}

func NewRedisRecipientStore(client *redis.Client, ttl time.Duration) *RedisRecipientStore {
	return &RedisRecipientStore{Client: client, TTL: ttl, now: time.Now}
}

func (s *RedisRecipientStore) Save(ctx context.Context, list *model.RecipientList) error {
	prepareList(list, s.now)

	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode recipient list: %w", err)
	}
	if err := s.Client.Set(ctx, recipientListKeyPrefix+list.ID, payload, s.TTL).Err(); err != nil {
		return fmt.Errorf("save recipient list %s: %w", list.ID, err)
	}
	return nil
}

func (s *RedisRecipientStore) Get(ctx context.Context, id string) (*model.RecipientList, error) {
	payload, err := s.Client.Get(ctx, recipientListKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, appErrors.NewListNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load recipient list %s: %w", id, err)
	}

	var list model.RecipientList
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("decode recipient list %s: %w", id, err)
	}
	return &list, nil
}

var _ RecipientStore = (*RedisRecipientStore)(nil)
