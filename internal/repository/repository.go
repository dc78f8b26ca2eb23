// Package repository declares the storage contracts of the auth core.
//
// Implementations live in repository/sqlstore (shared SQL) with the
// connection and migrations per database in repository/sqlite and
// repository/postgres. Services only ever see these interfaces.
package repository

import (
	"context"
	"time"

	"github.com/sakif/catchme/internal/model"
)

// UserRepository stores local users mirroring Instagram identities.
type UserRepository interface {
	// UpsertUser inserts the user or, when a row with the same IGUserID
	// exists, refreshes its Instagram profile fields. user.ID and UpdatedAt
	// are filled from the stored row. A missing RETURNING row is an
	// *apperror.PersistenceError.
	UpsertUser(ctx context.Context, user *model.User) error

	// GetUserByID returns apperror.ErrNotFound when no such user exists.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// TokenRepository stores at most one sealed Instagram token per user.
type TokenRepository interface {
	// UpsertToken inserts or replaces the token row for token.UserID.
	UpsertToken(ctx context.Context, token *model.InstagramToken) error

	// DeleteToken removes the user's token row. Deleting a missing row is not
	// an error.
	DeleteToken(ctx context.Context, userID string) error

	// ListExpiringTokens returns tokens that are still valid at now but
	// expire no later than before.
	ListExpiringTokens(ctx context.Context, now, before time.Time) ([]model.InstagramToken, error)
}

// SessionRepository stores session rows keyed by credential hash.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error

	// FindIdentity returns the user owning the session with tokenHash if its
	// expires_at is after now, or (nil, nil) otherwise.
	FindIdentity(ctx context.Context, tokenHash string, now time.Time) (*model.Identity, error)

	// DeleteSession removes the session and reports its owner. found is false
	// when no row matched.
	DeleteSession(ctx context.Context, tokenHash string) (userID string, found bool, err error)

	// DeleteExpiredSessions removes every session with expires_at <= now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is a complete storage backend.
type Store interface {
	UserRepository
	TokenRepository
	SessionRepository

	Ping(ctx context.Context) error
	Close() error
}
