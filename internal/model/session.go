package model

import "time"

// Session is one authenticated browser session.
//
// Only TokenHash is persisted. The raw credential lives in the browser's
// "session" cookie and, for a moment, in server memory while the cookie is
// being set.
type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
