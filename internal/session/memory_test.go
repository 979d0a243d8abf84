package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatbridge/vatbridge/internal/models"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		defer store.Close()

		sess := &models.Session{
			ID:        "abc",
			Token:     models.TokenSet{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)},
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.Save(ctx, sess))

		got, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "tok", got.Token.AccessToken)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		defer store.Close()

		require.NoError(t, store.Save(ctx, &models.Session{ID: "abc"}))

		first, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		first.Token.AccessToken = "mutated"

		second, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Empty(t, second.Token.AccessToken)
	})

	t.Run("missing id", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		defer store.Close()

		_, err := store.Get(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := NewMemoryStore(time.Hour)
		defer store.Close()

		require.NoError(t, store.Save(ctx, &models.Session{ID: "abc"}))
		require.NoError(t, store.Delete(ctx, "abc"))

		_, err := store.Get(ctx, "abc")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expiry", func(t *testing.T) {
		store := NewMemoryStore(20 * time.Millisecond)
		defer store.Close()

		require.NoError(t, store.Save(ctx, &models.Session{ID: "abc"}))
		time.Sleep(40 * time.Millisecond)

		_, err := store.Get(ctx, "abc")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save refreshes the deadline", func(t *testing.T) {
		store := NewMemoryStore(40 * time.Millisecond)
		defer store.Close()

		require.NoError(t, store.Save(ctx, &models.Session{ID: "abc"}))
		time.Sleep(25 * time.Millisecond)
		require.NoError(t, store.Save(ctx, &models.Session{ID: "abc"}))
		time.Sleep(25 * time.Millisecond)

		_, err := store.Get(ctx, "abc")
		require.NoError(t, err)
	})
}
