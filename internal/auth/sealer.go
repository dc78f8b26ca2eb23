package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealedTokenCorrupt is returned by Open when the stored value is not a
// valid sealed token for the given owner.
var ErrSealedTokenCorrupt = errors.New("auth: sealed token is corrupt or bound to another user")

// Sealer encrypts Instagram access tokens before they are persisted.
//
// FORMAT:
//
//	base64(nonce[24] || XChaCha20-Poly1305(token, aad=userID))
//
// The owning user id is authenticated as associated data, so a sealed value
// copied onto another user's row fails to open.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer from a 32-byte key (see DeriveKey).
func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("auth: creating token sealer: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts token for the user identified by userID.
func (s *Sealer) Seal(token, userID string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(token)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("auth: generating nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(token), []byte(userID))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, userID string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", ErrSealedTokenCorrupt
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(userID))
	if err != nil {
		return "", ErrSealedTokenCorrupt
	}
	return string(pt), nil
}
