package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/catchme/internal/model"
)

// CreateSession inserts a new session row. Sessions are never upserted: a
// second login for the same user creates a second, independent session.
func (s *Store) CreateSession(ctx context.Context, session *model.Session) error {
	session.CreatedAt = s.stamp()

	query, args, err := s.sb.
		Insert("sessions").
		Columns("token_hash", "user_id", "expires_at", "created_at").
		Values(session.TokenHash, session.UserID, session.ExpiresAt.UTC(), session.CreatedAt).
		ToSql()
	if err != nil {
		return s.wrap("build create session", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.wrap("create session", err)
	}
	return nil
}

// FindIdentity joins the session to its user, and left-joins the token row
// for its expiry. Unknown and expired hashes both yield (nil, nil).
func (s *Store) FindIdentity(ctx context.Context, tokenHash string, now time.Time) (*model.Identity, error) {
	cols := make([]string, 0, len(userColumns)+1)
	for _, c := range userColumns {
		cols = append(cols, "u."+c)
	}
	cols = append(cols, "t.expires_at")

	query, args, err := s.sb.
		Select(cols...).
		From("sessions s").
		Join("users u ON u.id = s.user_id").
		LeftJoin("instagram_tokens t ON t.user_id = u.id").
		Where(sq.Eq{"s.token_hash": tokenHash}).
		Where(sq.Gt{"s.expires_at": now.UTC()}).
		ToSql()
	if err != nil {
		return nil, s.wrap("build find identity", err)
	}

	var id model.Identity
	dest := append(userScanDest(&id.User), &id.TokenExpiresAt)

	err = s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("find identity", err)
	}
	return &id, nil
}

// DeleteSession removes the session and returns the id of its owner.
func (s *Store) DeleteSession(ctx context.Context, tokenHash string) (string, bool, error) {
	query, args, err := s.sb.
		Delete("sessions").
		Where(sq.Eq{"token_hash": tokenHash}).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return "", false, s.wrap("build delete session", err)
	}

	var userID string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap("delete session", err)
	}
	return userID, true, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := s.sb.
		Delete("sessions").
		Where(sq.LtOrEq{"expires_at": now.UTC()}).
		ToSql()
	if err != nil {
		return 0, s.wrap("build delete expired sessions", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.wrap("delete expired sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.wrap("delete expired sessions", err)
	}
	return n, nil
}
