// Package service holds the business logic of the auth core.
//
//	AuthHandler (HTTP) → AuthService → instagram.API   (provider calls)
//	                                 ↘ repository.Store (users, tokens, sessions)
//	                                 ↘ auth.*           (state, sealing, credentials)
//
// The service never reads requests or writes cookies. It returns values and
// apperror types; the handler decides what they mean over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/auth"
	"github.com/sakif/catchme/internal/instagram"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/model"
	"github.com/sakif/catchme/internal/repository"
)

// refreshConcurrency bounds parallel provider calls in RefreshExpiringTokens.
const refreshConcurrency = 4

// AuthOptions tunes an AuthService. Zero values fall back to defaults.
type AuthOptions struct {
	SessionTTL time.Duration    // default auth.DefaultSessionTTL
	Now        func() time.Time // default time.Now
}

// AuthService orchestrates login, identity resolution and logout.
//
// DEPENDENCIES (injected via NewAuthService):
//   - ig     instagram.API     → the three login calls and token refresh
//   - store  repository.Store  → users, tokens, sessions
//   - states *auth.StateSigner → CSRF state for the OAuth round trip
//   - sealer *auth.Sealer      → encrypts tokens before they are stored
type AuthService struct {
	ig     instagram.API
	store  repository.Store
	states *auth.StateSigner
	sealer *auth.Sealer
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	ig instagram.API,
	store repository.Store,
	states *auth.StateSigner,
	sealer *auth.Sealer,
	log *logger.Logger,
	opts AuthOptions,
) *AuthService {
	s := &AuthService{
		ig:     ig,
		store:  store,
		states: states,
		sealer: sealer,
		ttl:    opts.SessionTTL,
		now:    opts.Now,
		logger: log.With("component", "auth-service"),
	}
	if s.ttl <= 0 {
		s.ttl = auth.DefaultSessionTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// log returns the request logger from ctx, or the service's own logger when
// called from a scheduled job.
func (s *AuthService) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// SessionTTL is the lifetime given to new sessions and their cookie.
func (s *AuthService) SessionTTL() time.Duration { return s.ttl }

// BeginLogin issues a fresh state and the provider URL carrying it.
func (s *AuthService) BeginLogin() (state, authURL string, err error) {
	state, err = s.states.Issue()
	if err != nil {
		return "", "", fmt.Errorf("service/auth: issuing state: %w", err)
	}
	return state, s.ig.AuthCodeURL(state), nil
}

// VerifyState checks the oauth_state cookie against the state echoed by the
// provider.
//
//   - no cookie                        → missing_state_cookie
//   - forged, tampered or expired      → invalid_state
//   - echoed and different from cookie → invalid_state
//   - not echoed                       → accepted on the signed cookie alone
func (s *AuthService) VerifyState(cookie, echoed string) error {
	if cookie == "" {
		return apperror.MissingStateCookie()
	}
	if err := s.states.Verify(cookie); err != nil {
		if errors.Is(err, auth.ErrStateExpired) {
			return apperror.InvalidState("oauth state expired, please start again")
		}
		return apperror.InvalidState("oauth state is not valid")
	}
	if echoed != "" && echoed != cookie {
		return apperror.InvalidState("oauth state does not match")
	}
	return nil
}

// LoginResult is what the callback handler needs to finish a login.
// Credential is the raw session credential; it goes into the cookie and
// nowhere else.
type LoginResult struct {
	User       *model.User
	Credential string
	ExpiresAt  time.Time
}

// CompleteLogin runs the callback sequence:
//
//  1. code        → short-lived token   (provider)
//  2. short-lived → long-lived token    (provider)
//  3. long-lived  → profile             (provider)
//  4. upsert user keyed by Instagram id (storage)
//  5. seal and upsert the token         (storage)
//  6. issue a session                   (storage)
//
// The first failing step stops the sequence. Steps 1-3 write nothing, so a
// provider failure leaves storage exactly as it was.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, apperror.MissingCode()
	}
	log := s.log(ctx)

	short, err := s.ig.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	long, err := s.ig.ExchangeLongLivedToken(ctx, short.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	profile, err := s.ig.FetchProfile(ctx, long.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := userFromProfile(profile)
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (ig_user_id=%s): %w", profile.ID, err)
	}

	now := s.now()
	if err := s.storeToken(ctx, user.ID, long, now); err != nil {
		return nil, err
	}

	credential, expiresAt, err := s.issueSession(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", user.ID).
		Str("ig_user_id", user.IGUserID).
		Str("username", user.Username).
		Msg("user authenticated via Instagram")

	return &LoginResult{User: user, Credential: credential, ExpiresAt: expiresAt}, nil
}

func userFromProfile(p *instagram.Profile) *model.User {
	return &model.User{
		IGUserID:          p.ID,
		IGScopedUserID:    p.ScopedUserID,
		Username:          p.Username,
		Name:              p.Name,
		AccountType:       p.AccountType,
		ProfilePictureURL: p.ProfilePictureURL,
		FollowersCount:    p.FollowersCount,
		MediaCount:        p.MediaCount,
	}
}

// storeToken seals the long-lived token for userID and upserts it. The expiry
// is now + expires_in, or unknown when the provider omitted it.
func (s *AuthService) storeToken(ctx context.Context, userID string, long *instagram.LongLivedToken, now time.Time) error {
	sealed, err := s.sealer.Seal(long.AccessToken, userID)
	if err != nil {
		return fmt.Errorf("service/auth: sealing token: %w", err)
	}

	token := &model.InstagramToken{
		UserID:      userID,
		SealedToken: sealed,
		ExpiresAt:   long.ExpiresAt(now),
	}
	if err := s.store.UpsertToken(ctx, token); err != nil {
		return fmt.Errorf("service/auth: storing token for user %s: %w", userID, err)
	}

	ev := s.log(ctx).Debug().Str("user_id", userID)
	if token.ExpiresAt != nil {
		ev = ev.Str("expires", humanize.RelTime(*token.ExpiresAt, now, "ago", "from now"))
	}
	ev.Msg("instagram token stored")
	return nil
}

// issueSession creates a session row holding only the credential's hash.
func (s *AuthService) issueSession(ctx context.Context, userID string, now time.Time) (string, time.Time, error) {
	credential, err := auth.NewSessionCredential()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("service/auth: %w", err)
	}

	session := &model.Session{
		TokenHash: auth.HashCredential(credential),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl).UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("service/auth: creating session for user %s: %w", userID, err)
	}
	return credential, session.ExpiresAt, nil
}

// Resolve implements auth.Resolver. Unknown, logged-out and expired
// credentials all resolve to (nil, nil).
func (s *AuthService) Resolve(ctx context.Context, credential string) (*model.Identity, error) {
	if credential == "" {
		return nil, nil
	}
	id, err := s.store.FindIdentity(ctx, auth.HashCredential(credential), s.now())
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving session: %w", err)
	}
	return id, nil
}

var _ auth.Resolver = (*AuthService)(nil)

// Logout deletes the session behind credential and, when it had an owner,
// that owner's Instagram token as well. Logging out therefore also
// disconnects the Instagram account.
func (s *AuthService) Logout(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}

	userID, found, err := s.store.DeleteSession(ctx, auth.HashCredential(credential))
	if err != nil {
		return fmt.Errorf("service/auth: deleting session: %w", err)
	}
	if !found {
		return nil
	}

	if err := s.store.DeleteToken(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: deleting token for user %s: %w", userID, err)
	}

	s.log(ctx).Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFound("user", id)
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// PruneSessions deletes every expired session row.
func (s *AuthService) PruneSessions(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("service/auth: pruning sessions: %w", err)
	}
	return n, nil
}

// RefreshReport summarises one RefreshExpiringTokens run.
type RefreshReport struct {
	Candidates int
	Refreshed  int
	Failed     int
}

// RefreshExpiringTokens refreshes every token that is still valid but expires
// within the given window. A failure for one user is logged and counted; it
// does not stop the others. The returned error is only set when the
// candidates could not be listed.
func (s *AuthService) RefreshExpiringTokens(ctx context.Context, within time.Duration) (RefreshReport, error) {
	now := s.now()
	tokens, err := s.store.ListExpiringTokens(ctx, now, now.Add(within))
	if err != nil {
		return RefreshReport{}, fmt.Errorf("service/auth: listing expiring tokens: %w", err)
	}

	var refreshed, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(refreshConcurrency)

	for _, tok := range tokens {
		g.Go(func() error {
			if err := s.refreshOne(ctx, tok); err != nil {
				failed.Add(1)
				s.log(ctx).Warn().Err(err).Str("user_id", tok.UserID).Msg("instagram token refresh failed")
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return RefreshReport{
		Candidates: len(tokens),
		Refreshed:  int(refreshed.Load()),
		Failed:     int(failed.Load()),
	}, nil
}

func (s *AuthService) refreshOne(ctx context.Context, tok model.InstagramToken) error {
	plain, err := s.sealer.Open(tok.SealedToken, tok.UserID)
	if err != nil {
		return err
	}

	long, err := s.ig.RefreshLongLivedToken(ctx, plain)
	if err != nil {
		return err
	}

	return s.storeToken(ctx, tok.UserID, long, s.now())
}
