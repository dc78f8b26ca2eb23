package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/model"
)

// userColumns is the column order used by every SELECT that scans a user.
var userColumns = []string{
	"id", "ig_user_id", "ig_scoped_user_id", "username", "name", "account_type",
	"profile_picture_url", "followers_count", "media_count",
	"bio", "location", "specialisations", "email",
	"created_at", "updated_at",
}

// upsertUserSuffix refreshes every Instagram-sourced column on conflict. The
// profile customisation columns and created_at keep their stored values.
const upsertUserSuffix = `ON CONFLICT (ig_user_id) DO UPDATE SET
	ig_scoped_user_id = excluded.ig_scoped_user_id,
	username = excluded.username,
	name = excluded.name,
	account_type = excluded.account_type,
	profile_picture_url = excluded.profile_picture_url,
	followers_count = excluded.followers_count,
	media_count = excluded.media_count,
	updated_at = excluded.updated_at
RETURNING id`

// UpsertUser inserts or refreshes the user keyed by IGUserID.
//
// A fresh xid is proposed on every call; when the row already exists the
// conflict branch keeps the stored id and RETURNING hands it back, so
// re-authenticating never changes a user's local id. On return user.ID and
// user.UpdatedAt reflect the stored row; CreatedAt is left untouched.
func (s *Store) UpsertUser(ctx context.Context, user *model.User) error {
	now := s.stamp()

	query, args, err := s.sb.
		Insert("users").
		Columns(
			"id", "ig_user_id", "ig_scoped_user_id", "username", "name", "account_type",
			"profile_picture_url", "followers_count", "media_count", "created_at", "updated_at",
		).
		Values(
			xid.New().String(), user.IGUserID, user.IGScopedUserID, user.Username, user.Name, user.AccountType,
			user.ProfilePictureURL, user.FollowersCount, user.MediaCount, now, now,
		).
		Suffix(upsertUserSuffix).
		ToSql()
	if err != nil {
		return s.wrap("build upsert user", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if perr := noRow("upsert user", err); perr != nil {
		return perr
	}
	if err != nil {
		return s.wrap("upsert user", err)
	}
	user.ID = id
	user.UpdatedAt = now

	s.log.Debug().Str("user_id", user.ID).Str("ig_user_id", user.IGUserID).Msg("user upserted")
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query, args, err := s.sb.
		Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, s.wrap("build get user", err)
	}

	var u model.User
	err = s.db.QueryRowContext(ctx, query, args...).Scan(userScanDest(&u)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, s.wrap("get user", err)
	}
	return &u, nil
}

// userScanDest returns scan targets matching userColumns. Nullable columns
// scan into pointer fields, which database/sql sets to nil for NULL.
func userScanDest(u *model.User) []any {
	return []any{
		&u.ID, &u.IGUserID, &u.IGScopedUserID, &u.Username, &u.Name, &u.AccountType,
		&u.ProfilePictureURL, &u.FollowersCount, &u.MediaCount,
		&u.Bio, &u.Location, &u.Specialisations, &u.Email,
		&u.CreatedAt, &u.UpdatedAt,
	}
}
