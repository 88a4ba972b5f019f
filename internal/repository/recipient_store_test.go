package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
	"github.com/unclebandit/leadflow-backend/internal/repository"
)

func sampleList() *model.RecipientList {
	return &model.RecipientList{
		Recipients: []model.Recipient{
			{Row: 0, Email: "ann@x.com", FirstName: "Ann", Company: "Acme", Extra: map[string]string{"Title": "CTO"}},
			{Row: 1, Email: "bob@x.com", FirstName: "Bob"},
		},
		Segments: map[string]int{"Acme": 1},
	}
}

func exerciseStore(t *testing.T, store repository.RecipientStore) {
	t.Helper()
	ctx := context.Background()

	list := sampleList()
	require.NoError(t, store.Save(ctx, list))
	require.NotEmpty(t, list.ID)
	assert.False(t, list.CreatedAt.IsZero())

	got, err := store.Get(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, list.ID, got.ID)
	require.Len(t, got.Recipients, 2)
	assert.Equal(t, "Ann", got.Recipients[0].FirstName)
	assert.Equal(t, "CTO", got.Recipients[0].Extra["Title"])
	assert.Equal(t, 1, got.Segments["Acme"])

	_, err = store.Get(ctx, "missing")
	var notFound *appErrors.ListNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.ID)
}

func TestMemoryRecipientStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, repository.NewMemoryRecipientStore())
}

func TestMemoryRecipientStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := repository.NewMemoryRecipientStore()
	list := sampleList()
	require.NoError(t, store.Save(ctx, list))

	list.Recipients[0].Email = "changed@x.com"
	got, err := store.Get(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", got.Recipients[0].Email)

	got.Recipients[1].FirstName = "Robert"
	again, err := store.Get(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", again.Recipients[1].FirstName)
}

func TestRedisRecipientStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	exerciseStore(t, repository.NewRedisRecipientStore(client, time.Hour))
}

func TestRedisRecipientStoreExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := repository.NewRedisRecipientStore(client, time.Minute)
	list := sampleList()
	require.NoError(t, store.Save(ctx, list))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, list.ID)
	var notFound *appErrors.ListNotFoundError
	assert.True(t, errors.As(err, &notFound))
}
