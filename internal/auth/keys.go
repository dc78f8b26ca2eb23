package auth

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF info strings. Each purpose gets its own key so that compromising one
// use of APP_SECRET does not hand out the others.
const (
	InfoStateSigning = "catchme/oauth-state"
	InfoTokenSealing = "catchme/instagram-token"
	derivedKeyLength = 32
)

// DeriveKey expands the application secret into a 32-byte key bound to info.
func DeriveKey(secret, info string) []byte {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, derivedKeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF-SHA256 can produce up to 8160 bytes; 32 never fails.
		panic("auth: hkdf: " + err.Error())
	}
	return key
}
