package model

import "time"

// InstagramToken is the long-lived access credential for one user's
// Instagram account. There is at most one row per user.
//
// SealedToken is the encrypted form produced by auth.Sealer; the plaintext
// access token is never stored.
type InstagramToken struct {
	UserID      string
	SealedToken string
	ExpiresAt   *time.Time // nil when the provider omitted expires_in
	UpdatedAt   time.Time
}
