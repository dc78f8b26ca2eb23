package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/logger"
	"github.com/sakif/catchme/internal/model"
)

// contextKey is an unexported type used for context keys in this package, so
// no other package can read or shadow the identity stored by the middleware.
type contextKey string

const identityKey contextKey = "identity"

// Resolver turns a raw session credential into an identity.
//
// A nil identity with a nil error means "anonymous": the credential never
// existed, was logged out, or has expired. Those cases are deliberately not
// distinguished.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*model.Identity, error)
}

// OptionalAuth resolves the session cookie, if any, and stores the identity in
// the request context. It never blocks a request.
//
// Handlers check for the identity via IdentityFromContext; a (nil, false)
// result means the request is anonymous.
func OptionalAuth(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := resolveRequest(r, resolver); id != nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth is OptionalAuth that answers 401 when no identity resolved.
func RequireAuth(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := resolveRequest(r, resolver)
			if id == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				if err := json.NewEncoder(w).Encode(apperror.Unauthorized().Response()); err != nil {
					logger.FromContext(r.Context()).Error().Err(err).Msg("auth: writing 401 failed")
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity stored by OptionalAuth or
// RequireAuth.
//
//	id, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // anonymous visitor
//	}
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*model.Identity)
	return id, ok && id != nil
}

// resolveRequest reads the session cookie and resolves it. A storage failure
// is logged and treated as anonymous so public pages keep working.
func resolveRequest(r *http.Request, resolver Resolver) *model.Identity {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	id, err := resolver.Resolve(r.Context(), cookie.Value)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("auth: resolving session failed")
		return nil
	}
	return id
}
