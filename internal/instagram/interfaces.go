package instagram

import "context"

//go:generate mockgen -destination=../mock/instagram_mock.go -package=mock github.com/sakif/catchme/internal/instagram API

// API is the client role of the Instagram login flow. Every method that talks
// to the provider returns either its payload or an *apperror.UpstreamAuthError,
// never both.
type API interface {
	// AuthCodeURL builds the authorization URL the browser is redirected to.
	AuthCodeURL(state string) string

	// ExchangeCode trades an authorization code for a short-lived token.
	ExchangeCode(ctx context.Context, code string) (*ShortLivedToken, error)

	// ExchangeLongLivedToken trades a short-lived token for a long-lived one.
	ExchangeLongLivedToken(ctx context.Context, shortLivedToken string) (*LongLivedToken, error)

	// FetchProfile reads the profile of the account owning accessToken.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)

	// RefreshLongLivedToken extends a long-lived token that has not expired yet.
	RefreshLongLivedToken(ctx context.Context, accessToken string) (*LongLivedToken, error)
}
