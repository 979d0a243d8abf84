package models

import "time"

// TokenSet is the HMRC token pair held for the lifetime of a browser session.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the access token expires within d from now.
// A zero expiry counts as already expired.
func (t *TokenSet) ExpiresWithin(d time.Duration) bool {
	return !time.Now().Add(d).Before(t.ExpiresAt)
}
