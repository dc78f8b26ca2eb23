// Package auth holds the security primitives of the login flow: OAuth state
// tokens, session credentials, at-rest sealing of provider tokens, and the
// middleware that resolves a session cookie to an identity.
//
// LOGIN FLOW OVERVIEW:
//  1. /auth/start issues a signed state token, stores it in the oauth_state
//     cookie and sends the browser to Instagram with the same value
//  2. Instagram redirects to /auth/callback; the state cookie is verified
//     (signature, expiry, and equality with the echoed state when present)
//  3. the service exchanges the code, upserts the user, seals and stores the
//     long-lived token, and issues a random session credential
//  4. only the SHA-256 of the credential is stored; the raw value lives in
//     the HttpOnly "session" cookie
//  5. every later request hashes the cookie and looks the session up
//
// WHY A SIGNED STATE?
// Instagram does not reliably echo the state parameter back to the callback.
// A bare random cookie can then only be checked for presence. Signing it means
// the callback can still reject forged or stale cookies, and when the
// provider does echo state the two values must match exactly.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// StateCookieName correlates an authorization request with its callback.
	StateCookieName = "oauth_state"

	// StateTTL bounds how long a user may take on the provider's consent page.
	StateTTL = 10 * time.Minute

	stateIssuer   = "catchme"
	stateAudience = "instagram-oauth"
)

// ErrStateExpired is returned by Verify for a well-formed state token whose
// lifetime has passed.
var ErrStateExpired = errors.New("auth: oauth state expired")

// StateSigner issues and verifies OAuth state tokens.
//
// A state token is an HS256 JWT with a random jti, so two logins never share
// a value, and a 10-minute exp matching the cookie lifetime.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a StateSigner. key should come from DeriveKey so the
// state key is never the raw application secret.
func NewStateSigner(key []byte) (*StateSigner, error) {
	if len(key) < 32 {
		return nil, errors.New("auth: state signing key must be at least 32 bytes")
	}
	return &StateSigner{secret: key}, nil
}

// Issue creates a new state token valid for StateTTL.
func (s *StateSigner) Issue() (string, error) {
	return s.issue(StateTTL)
}

func (s *StateSigner) issue(ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    stateIssuer,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer, audience and expiry of a state token.
//
// Only HS256 is accepted. Without jwt.WithValidMethods a token claiming
// "alg":"none" could otherwise slip through.
func (s *StateSigner) Verify(state string) error {
	token, err := jwt.ParseWithClaims(
		state,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrStateExpired
		}
		return fmt.Errorf("auth: invalid oauth state: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || c.ID == "" {
		return errors.New("auth: invalid oauth state claims")
	}
	return nil
}
