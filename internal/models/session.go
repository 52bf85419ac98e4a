package models

import "time"

// Session is the server-side record behind a logged-in client. The token
// handed to the browser only references it; deleting the record logs the
// client out no matter what it still holds.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry time.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
