package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatbridge/vatbridge/internal/models"
	"github.com/vatbridge/vatbridge/internal/session"
)

type stubRefresher struct {
	calls  int
	result *models.TokenSet
	err    error
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestTokenService_EnsureValid(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh token passes through", func(t *testing.T) {
		refresher := &stubRefresher{}
		store := session.NewMemoryStore(time.Hour)
		defer store.Close()
		svc := NewTokenService(refresher, store, quietLogger())

		sess := &models.Session{
			ID: "s1",
			Token: models.TokenSet{
				AccessToken: "fresh",
				ExpiresAt:   time.Now().Add(time.Hour),
			},
		}

		token, err := svc.EnsureValid(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, "fresh", token)
		assert.Zero(t, refresher.calls)
	})

	t.Run("near-expiry token is refreshed and persisted", func(t *testing.T) {
		rotated := &models.TokenSet{
			AccessToken:  "rotated-access",
			RefreshToken: "rotated-refresh",
			TokenType:    "Bearer",
			ExpiresAt:    time.Now().Add(time.Hour),
		}
		refresher := &stubRefresher{result: rotated}
		store := session.NewMemoryStore(time.Hour)
		defer store.Close()
		svc := NewTokenService(refresher, store, quietLogger())

		sess := &models.Session{
			ID: "s2",
			Token: models.TokenSet{
				AccessToken:  "stale",
				RefreshToken: "old-refresh",
				ExpiresAt:    time.Now().Add(30 * time.Second),
			},
		}
		require.NoError(t, store.Save(ctx, sess))

		token, err := svc.EnsureValid(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, "rotated-access", token)
		assert.Equal(t, 1, refresher.calls)

		stored, err := store.Get(ctx, "s2")
		require.NoError(t, err)
		assert.Equal(t, "rotated-access", stored.Token.AccessToken)
		assert.Equal(t, "rotated-refresh", stored.Token.RefreshToken)
	})

	t.Run("expired without refresh token", func(t *testing.T) {
		refresher := &stubRefresher{}
		store := session.NewMemoryStore(time.Hour)
		defer store.Close()
		svc := NewTokenService(refresher, store, quietLogger())

		sess := &models.Session{
			ID:    "s3",
			Token: models.TokenSet{AccessToken: "stale", ExpiresAt: time.Now().Add(-time.Minute)},
		}

		_, err := svc.EnsureValid(ctx, sess)
		require.ErrorIs(t, err, ErrSessionExpired)
		assert.Zero(t, refresher.calls)
	})

	t.Run("refresh failure propagates", func(t *testing.T) {
		refresher := &stubRefresher{err: errors.New("boom")}
		store := session.NewMemoryStore(time.Hour)
		defer store.Close()
		svc := NewTokenService(refresher, store, quietLogger())

		sess := &models.Session{
			ID: "s4",
			Token: models.TokenSet{
				AccessToken:  "stale",
				RefreshToken: "old-refresh",
				ExpiresAt:    time.Now().Add(-time.Minute),
			},
		}

		_, err := svc.EnsureValid(ctx, sess)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to refresh access token")
	})
}
