package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// SessionCookieName carries the raw session credential.
	SessionCookieName = "session"

	// DefaultSessionTTL is how long an issued session stays valid.
	DefaultSessionTTL = 30 * 24 * time.Hour

	// 43 characters from nanoid's 64-symbol alphabet is 258 bits of entropy.
	credentialLength = 43
)

// NewSessionCredential returns a fresh random session credential. The value
// must only ever be written to the session cookie; persist HashCredential of
// it instead.
func NewSessionCredential() (string, error) {
	raw, err := gonanoid.New(credentialLength)
	if err != nil {
		return "", fmt.Errorf("auth: generating session credential: %w", err)
	}
	return raw, nil
}

// HashCredential returns the lowercase hex SHA-256 of a raw credential. This
// is the only form of the credential that is stored, and lookups compare
// hashes through the primary key rather than comparing secrets in memory.
func HashCredential(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
