package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vatbridge/vatbridge/internal/models"
	"github.com/vatbridge/vatbridge/internal/session"
)

// ErrSessionExpired means the access token is stale and no refresh token
// is available, so the user has to sign in again.
var ErrSessionExpired = errors.New("session expired, sign in again")

// refreshLeeway mirrors the sandbox client behavior: refresh whenever the
// access token is within a minute of expiry.
const refreshLeeway = 60 * time.Second

// Refresher exchanges a refresh token for a new token set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error)
}

// TokenService keeps a session's access token usable, refreshing through
// the OAuth endpoint and writing the rotated pair back to the store.
type TokenService struct {
	refresher Refresher
	store     session.Store
	logger    *logrus.Logger
}

func NewTokenService(refresher Refresher, store session.Store, logger *logrus.Logger) *TokenService {
	return &TokenService{
		refresher: refresher,
		store:     store,
		logger:    logger,
	}
}

// EnsureValid returns an access token good for at least the leeway window.
// The session is mutated in place when a refresh happens.
func (s *TokenService) EnsureValid(ctx context.Context, sess *models.Session) (string, error) {
	if sess.Token.AccessToken != "" && !sess.Token.ExpiresWithin(refreshLeeway) {
		return sess.Token.AccessToken, nil
	}

	if sess.Token.RefreshToken == "" {
		return "", ErrSessionExpired
	}

	fresh, err := s.refresher.Refresh(ctx, sess.Token.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	sess.Token = *fresh
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.WithError(err).Error("Failed to persist refreshed token")
		// Continue anyway, the token is still valid for this request
	}

	return fresh.AccessToken, nil
}
