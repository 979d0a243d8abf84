package models

import "time"

// Session binds a browser cookie to the HMRC token pair obtained for it.
// Sessions are create-use-discard: nothing outlives the store TTL or a logout.
type Session struct {
	ID        string    `json:"id"`
	Token     TokenSet  `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
