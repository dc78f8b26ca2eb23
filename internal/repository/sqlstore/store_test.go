package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/model"
	"github.com/sakif/catchme/internal/repository/sqlite"
	"github.com/sakif/catchme/internal/repository/sqlstore"
)

// newTestStore opens a migrated in-memory SQLite store. Each test gets its
// own database.
func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), sqlite.Memory, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

// createTestUser upserts a minimal user and fails the test on error.
func createTestUser(t *testing.T, s *sqlstore.Store, igUserID, username string) *model.User {
	t.Helper()
	u := &model.User{IGUserID: igUserID, Username: username}
	require.NoError(t, s.UpsertUser(context.Background(), u))
	return u
}

func countRows(t *testing.T, s *sqlstore.Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// =========================================================================
// USERS
// =========================================================================

func TestUpsertUser_Insert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{
		IGUserID:          "999",
		IGScopedUserID:    strPtr("17841400000000001"),
		Username:          "inkqueen",
		Name:              strPtr("Ink Queen"),
		AccountType:       strPtr("BUSINESS"),
		ProfilePictureURL: strPtr("https://cdn.example/p.jpg"),
		FollowersCount:    intPtr(1200),
		MediaCount:        intPtr(87),
	}
	require.NoError(t, s.UpsertUser(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "999", got.IGUserID)
	assert.Equal(t, "inkqueen", got.Username)
	assert.Equal(t, "17841400000000001", *got.IGScopedUserID)
	assert.Equal(t, int64(1200), *got.FollowersCount)
	assert.Nil(t, got.Bio)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsertUser_IdempotentOnIGUserID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.User{IGUserID: "999", Username: "inkqueen", FollowersCount: intPtr(100)}
	require.NoError(t, s.UpsertUser(ctx, first))

	second := &model.User{IGUserID: "999", Username: "inkqueen_tattoo", FollowersCount: intPtr(250), MediaCount: intPtr(3)}
	require.NoError(t, s.UpsertUser(ctx, second))

	assert.Equal(t, first.ID, second.ID, "re-authenticating must keep the local id")
	assert.Equal(t, 1, countRows(t, s, "users"))

	got, err := s.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "inkqueen_tattoo", got.Username)
	assert.Equal(t, int64(250), *got.FollowersCount)
	assert.Equal(t, int64(3), *got.MediaCount)
}

func TestUpsertUser_ClearsFieldsTheProviderStoppedSending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &model.User{IGUserID: "999", Username: "a", Name: strPtr("Old Name")}))
	u := &model.User{IGUserID: "999", Username: "a"}
	require.NoError(t, s.UpsertUser(ctx, u))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Name)
}

func TestUpsertUser_KeepsProfileCustomisation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "999", "inkqueen")
	_, err := s.DB().Exec(`UPDATE users SET bio = ?, email = ? WHERE id = ?`, "Fine line tattoos", "ink@example.com", u.ID)
	require.NoError(t, err)

	require.NoError(t, s.UpsertUser(ctx, &model.User{IGUserID: "999", Username: "inkqueen"}))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "Fine line tattoos", *got.Bio)
	assert.Equal(t, "ink@example.com", *got.Email)
}

func TestUpsertUser_DifferentIdentitiesGetDifferentRows(t *testing.T) {
	s := newTestStore(t)

	a := createTestUser(t, s, "1", "a")
	b := createTestUser(t, s, "2", "b")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, countRows(t, s, "users"))
}

func TestGetUserByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// TOKENS
// =========================================================================

func TestUpsertToken_OneRowPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "999", "inkqueen")

	exp1 := time.Now().Add(time.Hour)
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: u.ID, SealedToken: "sealed-1", ExpiresAt: &exp1}))
	exp2 := time.Now().Add(60 * 24 * time.Hour)
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: u.ID, SealedToken: "sealed-2", ExpiresAt: &exp2}))

	assert.Equal(t, 1, countRows(t, s, "instagram_tokens"))

	var sealed string
	require.NoError(t, s.DB().QueryRow(`SELECT access_token_enc FROM instagram_tokens WHERE user_id = ?`, u.ID).Scan(&sealed))
	assert.Equal(t, "sealed-2", sealed)
}

func TestUpsertToken_NilExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "999", "inkqueen")

	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: u.ID, SealedToken: "sealed"}))

	raw := "raw-credential-hash"
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: raw, UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))

	id, err := s.FindIdentity(ctx, raw, time.Now())
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Nil(t, id.TokenExpiresAt)
}

func TestUpsertToken_UnknownUser(t *testing.T) {
	s := newTestStore(t)

	err := s.UpsertToken(context.Background(), &model.InstagramToken{UserID: "ghost", SealedToken: "sealed"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListExpiringTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	soon := createTestUser(t, s, "1", "soon")
	later := createTestUser(t, s, "2", "later")
	expired := createTestUser(t, s, "3", "expired")
	unknown := createTestUser(t, s, "4", "unknown")

	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: soon.ID, SealedToken: "a", ExpiresAt: at(48 * time.Hour)}))
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: later.ID, SealedToken: "b", ExpiresAt: at(30 * 24 * time.Hour)}))
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: expired.ID, SealedToken: "c", ExpiresAt: at(-time.Hour)}))
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: unknown.ID, SealedToken: "d"}))

	got, err := s.ListExpiringTokens(ctx, now, now.Add(7*24*time.Hour))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, soon.ID, got[0].UserID)
	assert.Equal(t, "a", got[0].SealedToken)
	require.NotNil(t, got[0].ExpiresAt)
	assert.WithinDuration(t, now.Add(48*time.Hour), *got[0].ExpiresAt, time.Second)
}

func TestDeleteToken_MissingIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.DeleteToken(context.Background(), "nobody"))
}

// =========================================================================
// SESSIONS
// =========================================================================

func TestFindIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	u := createTestUser(t, s, "999", "inkqueen")
	exp := now.Add(50 * 24 * time.Hour)
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: u.ID, SealedToken: "sealed", ExpiresAt: &exp}))
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "hash-valid", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	id, err := s.FindIdentity(ctx, "hash-valid", now)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, u.ID, id.User.ID)
	assert.Equal(t, "inkqueen", id.User.Username)
	require.NotNil(t, id.TokenExpiresAt)
	assert.WithinDuration(t, exp, *id.TokenExpiresAt, time.Second)
}

func TestFindIdentity_UnknownHash(t *testing.T) {
	s := newTestStore(t)

	id, err := s.FindIdentity(context.Background(), "never-issued", time.Now())
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestFindIdentity_ExpiredSessionDoesNotResolve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	u := createTestUser(t, s, "999", "inkqueen")
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "hash-old", UserID: u.ID, ExpiresAt: now.Add(-time.Second)}))

	id, err := s.FindIdentity(ctx, "hash-old", now)
	require.NoError(t, err)
	assert.Nil(t, id, "an expired session must not resolve even though the hash matches")

	// the row is still there until pruned
	assert.Equal(t, 1, countRows(t, s, "sessions"))
}

func TestFindIdentity_ExpiryBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	u := createTestUser(t, s, "999", "inkqueen")
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "h", UserID: u.ID, ExpiresAt: at}))

	id, err := s.FindIdentity(ctx, "h", at.Add(-time.Millisecond))
	require.NoError(t, err)
	assert.NotNil(t, id)

	id, err = s.FindIdentity(ctx, "h", at)
	require.NoError(t, err)
	assert.Nil(t, id, "expires_at must be strictly after now")
}

func TestCreateSession_MultiplePerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "999", "inkqueen")

	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "h1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "h2", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))

	assert.Equal(t, 2, countRows(t, s, "sessions"))
}

func TestCreateSession_DuplicateHashConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "999", "inkqueen")

	sess := &model.Session{TokenHash: "h1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateSession(ctx, sess))

	err := s.CreateSession(ctx, sess)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "999", "inkqueen")
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "h1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))

	userID, found, err := s.DeleteSession(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, u.ID, userID)

	_, found, err = s.DeleteSession(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	u := createTestUser(t, s, "999", "inkqueen")

	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "old-1", UserID: u.ID, ExpiresAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "old-2", UserID: u.ID, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, countRows(t, s, "sessions"))

	id, err := s.FindIdentity(ctx, "live", now)
	require.NoError(t, err)
	assert.NotNil(t, id)
}

func TestDeletingUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "999", "inkqueen")
	require.NoError(t, s.UpsertToken(ctx, &model.InstagramToken{UserID: u.ID, SealedToken: "sealed"}))
	require.NoError(t, s.CreateSession(ctx, &model.Session{TokenHash: "h1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))

	_, err := s.DB().Exec(`DELETE FROM users WHERE id = ?`, u.ID)
	require.NoError(t, err)

	assert.Zero(t, countRows(t, s, "sessions"))
	assert.Zero(t, countRows(t, s, "instagram_tokens"))
}

func TestWithClock(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	s, err := sqlite.Open(context.Background(), sqlite.Memory, logger.Nop(), sqlstore.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	defer s.Close()

	u := &model.User{IGUserID: "999", Username: "inkqueen"}
	require.NoError(t, s.UpsertUser(context.Background(), u))

	got, err := s.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.CreatedAt), "CreatedAt = %v", got.CreatedAt)
	assert.True(t, fixed.Equal(got.UpdatedAt))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "sqlite", s.Dialect())

	require.NoError(t, s.Close())
	err := s.Ping(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrConflict))
}
