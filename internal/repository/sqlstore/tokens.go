package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/catchme/internal/model"
)

const upsertTokenSuffix = `ON CONFLICT (user_id) DO UPDATE SET
	access_token_enc = excluded.access_token_enc,
	expires_at = excluded.expires_at,
	updated_at = excluded.updated_at`

// UpsertToken stores the sealed token, replacing any previous one for the
// user. token.UpdatedAt is set to the write time.
func (s *Store) UpsertToken(ctx context.Context, token *model.InstagramToken) error {
	token.UpdatedAt = s.stamp()

	var expires *time.Time
	if token.ExpiresAt != nil {
		utc := token.ExpiresAt.UTC()
		expires = &utc
	}

	query, args, err := s.sb.
		Insert("instagram_tokens").
		Columns("user_id", "access_token_enc", "expires_at", "updated_at").
		Values(token.UserID, token.SealedToken, expires, token.UpdatedAt).
		Suffix(upsertTokenSuffix).
		ToSql()
	if err != nil {
		return s.wrap("build upsert token", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.wrap("upsert token", err)
	}
	return nil
}

func (s *Store) DeleteToken(ctx context.Context, userID string) error {
	query, args, err := s.sb.
		Delete("instagram_tokens").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return s.wrap("build delete token", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.wrap("delete token", err)
	}
	return nil
}

// ListExpiringTokens returns tokens with now < expires_at <= before, soonest
// first. Tokens without a known expiry are never returned.
func (s *Store) ListExpiringTokens(ctx context.Context, now, before time.Time) ([]model.InstagramToken, error) {
	query, args, err := s.sb.
		Select("user_id", "access_token_enc", "expires_at", "updated_at").
		From("instagram_tokens").
		Where(sq.Gt{"expires_at": now.UTC()}).
		Where(sq.LtOrEq{"expires_at": before.UTC()}).
		OrderBy("expires_at").
		ToSql()
	if err != nil {
		return nil, s.wrap("build list expiring tokens", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("list expiring tokens", err)
	}
	defer rows.Close()

	var tokens []model.InstagramToken
	for rows.Next() {
		var t model.InstagramToken
		if err := rows.Scan(&t.UserID, &t.SealedToken, &t.ExpiresAt, &t.UpdatedAt); err != nil {
			return nil, s.wrap("scan token", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list expiring tokens", err)
	}
	return tokens, nil
}
