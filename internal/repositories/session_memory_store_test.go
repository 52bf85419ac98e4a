package repositories_test

import (
	"context"
	"testing"
	"time"

	"gymflow/internal/models"
	"gymflow/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemorySessionStore()

	session := &models.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	// Delete is idempotent.
	require.NoError(t, store.Delete(ctx, "sess-1"))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestMemorySessionStoreDropsExpired(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemorySessionStore()

	session := &models.Session{
		ID:        "sess-2",
		UserID:    "user-2",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Save(ctx, session))

	_, err := store.Get(ctx, "sess-2")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
