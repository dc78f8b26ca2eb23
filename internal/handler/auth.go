package handler

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/auth"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/model"
	"github.com/sakif/catchme/internal/service"
)

// AuthHandler runs the Instagram OAuth flow and the session endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleStart    → set the CSRF state cookie, redirect to Instagram
//   - HandleCallback → verify state, run the login sequence, set the session
//   - HandleLogout   → delete session + Instagram token, clear the cookie
//   - HandleMe       → return the identity resolved by the auth middleware
//
// DEPENDENCY CHAIN:
//   - svc *service.AuthService → everything that talks to Instagram or storage
//
// The handler only deals with requests, cookies and status codes.
type AuthHandler struct {
	svc           *service.AuthService
	cookies       cookieJar
	defaultReturn string
}

// AuthHandlerOptions carries the cookie-related settings from config.
type AuthHandlerOptions struct {
	CookieSecure      bool
	DefaultReturnPath string // where to land after login when no redirect was asked for
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc *service.AuthService, opts AuthHandlerOptions) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		cookies:       cookieJar{secure: opts.CookieSecure},
		defaultReturn: pathOr(opts.DefaultReturnPath, "/me"),
	}
}

// HandleStart redirects the browser to Instagram's authorization page.
//
// HTTP: GET /auth/start[?redirect=/path]
//
// CSRF PROTECTION VIA STATE:
// BeginLogin issues a signed, 10-minute state token. It goes into the
// oauth_state cookie AND into the URL we send the user to. On callback the
// cookie must be present and valid, and if Instagram echoes the state it must
// be the same value.
//
// A safe ?redirect= is remembered in oauth_redirect. If none is given, an
// oauth_redirect cookie set earlier by the site is left alone and forwarded.
func (h *AuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	state, authURL, err := h.svc.BeginLogin()
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("auth start: issuing state failed")
		writeError(w, r, err)
		return
	}

	h.cookies.set(w, auth.StateCookieName, state, auth.StateTTL)

	if dest := r.URL.Query().Get("redirect"); safePath(dest) {
		h.cookies.set(w, RedirectCookieName, dest, redirectCookieTTL)
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/callback?code=xxx[&state=yyy]
//
// FLOW:
//  1. Require the state cookie
//  2. If the user cancelled on Instagram, verify state, clear cookies, go home
//  3. Require a code
//  4. Verify the state cookie (and the echoed state, if any)
//  5. CompleteLogin: exchange, profile, upsert, store token, issue session
//  6. Set the session cookie, clear the OAuth cookies, redirect
//
// Nothing reaches Instagram before the state has been verified. Steps 1-4
// answer with terse JSON. Failures in step 5 happen in front of a user
// mid-login, so they get a small HTML page with a retry link.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	q := r.URL.Query()
	stateCookie := cookieValue(r, auth.StateCookieName)

	// --- Step 1: state cookie present ---
	if stateCookie == "" {
		log.Warn().Msg("auth callback: no state cookie")
		writeError(w, r, apperror.MissingStateCookie())
		return
	}

	// --- Step 2: user denied authorization ---
	if errParam := q.Get("error"); errParam != "" {
		if err := h.svc.VerifyState(stateCookie, q.Get("state")); err != nil {
			log.Warn().Err(err).Msg("auth callback: state check failed")
			writeError(w, r, err)
			return
		}
		log.Info().
			Str("error", errParam).
			Str("reason", q.Get("error_reason")).
			Msg("auth callback: user denied authorization")
		h.cookies.clear(w, auth.StateCookieName, RedirectCookieName)
		http.Redirect(w, r, "/?auth=denied", http.StatusFound)
		return
	}

	// --- Step 3: authorization code ---
	code := q.Get("code")
	if code == "" {
		writeError(w, r, apperror.MissingCode())
		return
	}

	// --- Step 4: CSRF state ---
	if err := h.svc.VerifyState(stateCookie, q.Get("state")); err != nil {
		log.Warn().Err(err).Msg("auth callback: state check failed")
		writeError(w, r, err)
		return
	}

	// --- Step 5: login sequence ---
	result, err := h.svc.CompleteLogin(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("auth callback: login failed")
		renderLoginFailed(w, r, err)
		return
	}

	// --- Step 6: session cookie + redirect ---
	h.cookies.set(w, auth.SessionCookieName, result.Credential, h.svc.SessionTTL())
	dest := pathOr(cookieValue(r, RedirectCookieName), h.defaultReturn)
	h.cookies.clear(w, auth.StateCookieName, RedirectCookieName)

	http.Redirect(w, r, dest, http.StatusFound)
}

// HandleLogout ends the session and disconnects Instagram.
//
// HTTP: GET|POST /auth/logout[?redirect=/path]
//
// The cookie is cleared and the redirect sent no matter what happened in
// storage. A logout that fails to delete rows is logged; the session will
// still expire on its own.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), cookieValue(r, auth.SessionCookieName)); err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("logout: deleting session failed")
	}

	h.cookies.clear(w, auth.SessionCookieName)
	http.Redirect(w, r, pathOr(r.FormValue("redirect"), "/"), http.StatusFound)
}

// MeResponse is the body of GET /api/me.
type MeResponse struct {
	OK             bool       `json:"ok"`
	User           model.User `json:"user"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

// HandleMe returns the currently authenticated identity.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth has already resolved the session)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthorized())
		return
	}

	writeJSON(w, r, http.StatusOK, MeResponse{
		OK:             true,
		User:           id.User,
		TokenExpiresAt: id.TokenExpiresAt,
	})
}

var loginFailedPage = template.Must(template.New("login-failed").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Login failed</title></head>
<body>
<h1>Login failed</h1>
<p>{{.Message}}</p>
<p><a href="/auth/start">Try again</a></p>
</body>
</html>
`))

// renderLoginFailed shows the browser a retry page with the mapped status.
func renderLoginFailed(w http.ResponseWriter, r *http.Request, err error) {
	status, _, _ := classify(err)

	message := "Something went wrong while logging you in."
	var upErr *apperror.UpstreamAuthError
	if errors.As(err, &upErr) {
		if upErr.Rejected() {
			message = "Instagram did not accept the login. It may have expired."
		} else {
			message = "We could not reach Instagram."
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := loginFailedPage.Execute(w, struct{ Message string }{message}); err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to render login page")
	}
}
