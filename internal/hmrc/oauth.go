package hmrc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/vatbridge/vatbridge/internal/config"
	"github.com/vatbridge/vatbridge/internal/models"
)

// OAuth drives the Authorization Code Flow against the sandbox's
// /oauth/authorize and /oauth/token endpoints.
type OAuth struct {
	cfg    *oauth2.Config
	logger *logrus.Logger
}

func NewOAuth(cfg *config.HMRCConfig, logger *logrus.Logger) *OAuth {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI(),
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/oauth/authorize",
				TokenURL: base + "/oauth/token",
				// HMRC expects client_id/client_secret in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		logger: logger,
	}
}

// AuthorizationURL returns the URL the browser is sent to for consent.
func (o *OAuth) AuthorizationURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange swaps an authorization code for a token set.
func (o *OAuth) Exchange(ctx context.Context, code string) (*models.TokenSet, error) {
	token, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		o.logger.WithError(err).Error("Authorization code exchange failed")
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return fromOAuth2Token(token), nil
}

// Refresh obtains a fresh access token using the stored refresh token.
// HMRC rotates refresh tokens, so callers must persist the returned pair.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*models.TokenSet, error) {
	src := o.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		o.logger.WithError(err).Error("Token refresh failed")
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	set := fromOAuth2Token(token)
	if set.RefreshToken == "" {
		set.RefreshToken = refreshToken
	}
	return set, nil
}

func fromOAuth2Token(token *oauth2.Token) *models.TokenSet {
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		// The sandbox always sends expires_in (3600s); fall back to that.
		expiresAt = time.Now().Add(time.Hour)
	}

	return &models.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    tokenType,
		ExpiresAt:    expiresAt,
	}
}
