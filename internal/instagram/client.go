// Package instagram is the client side of the Instagram Business Login flow.
//
// THE THREE CALLS OF A LOGIN:
//  1. POST {token_url} (form)                  code        → short-lived token
//  2. GET  {graph}/access_token                short-lived → long-lived token (~60 days)
//  3. GET  {graph}/me?fields=...               long-lived  → profile
//
// Each step consumes the previous step's output, so they run strictly in
// order and the first failure aborts the login. A fourth call,
// GET {graph}/refresh_access_token, extends a long-lived token and is used by
// the background refresh job.
//
// Every failure comes back as *apperror.UpstreamAuthError carrying the step
// name, the provider's HTTP status and a truncated body. No call is retried.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/config"
	"github.com/sakif/catchme/internal/logger"
)

// Step names reported in UpstreamAuthError.Step.
const (
	StepCodeExchange  = "code_exchange"
	StepTokenExchange = "token_exchange"
	StepProfileFetch  = "profile_fetch"
	StepTokenRefresh  = "token_refresh"
)

// maxErrorBody bounds how much of a provider error body is kept for logs.
const maxErrorBody = 512

// Client talks to api.instagram.com and graph.instagram.com.
type Client struct {
	cfg    config.Instagram
	oauth  *oauth2.Config
	http   *resty.Client
	graph  string
	tokens string
}

var _ API = (*Client)(nil)

// NewClient builds a Client. Every outbound request is bounded by
// cfg.Timeout; a hung provider fails that single login instead of stalling it.
func NewClient(cfg config.Instagram) *Client {
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		graph:  cfg.GraphURL,
		tokens: cfg.TokenURL,
	}
}

// AuthCodeURL returns the provider authorization URL:
//
//	{auth_url}?client_id=..&redirect_uri={redirect}?state=..&response_type=code
//	          &scope=a,b,c&force_reauth=true&state=..
//
// Instagram expects comma-separated scopes, so the space-joined default that
// oauth2 writes is replaced. The state travels both as its own parameter and
// inside redirect_uri, because the provider does not always echo the former.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("force_reauth", "true"),
		oauth2.SetAuthURLParam("scope", strings.Join(c.cfg.Scopes, ",")),
		oauth2.SetAuthURLParam("redirect_uri", redirectWithState(c.cfg.RedirectURI, state)),
	)
}

// ExchangeCode performs the authorization_code grant.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*ShortLivedToken, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"grant_type":    "authorization_code",
			"redirect_uri":  c.cfg.RedirectURI,
			"code":          code,
		}).
		Post(c.tokens)
	if err := checkResponse(StepCodeExchange, resp, err); err != nil {
		return nil, err
	}

	var env shortLivedTokenEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, decodeError(StepCodeExchange, resp, err)
	}
	payload := env.shortLivedTokenPayload
	if len(env.Data) > 0 {
		payload = env.Data[0]
	}
	if payload.AccessToken == "" {
		return nil, missingFieldError(StepCodeExchange, resp, "access_token")
	}

	logger.FromContext(ctx).Debug().
		Str("ig_user_id", string(payload.UserID)).
		Int("permissions", len(payload.Permissions)).
		Msg("instagram: short-lived token issued")

	return &ShortLivedToken{
		AccessToken: payload.AccessToken,
		UserID:      string(payload.UserID),
		Permissions: []string(payload.Permissions),
	}, nil
}

// ExchangeLongLivedToken performs the ig_exchange_token grant.
func (c *Client) ExchangeLongLivedToken(ctx context.Context, shortLivedToken string) (*LongLivedToken, error) {
	return c.longLivedToken(ctx, StepTokenExchange, "/access_token", map[string]string{
		"grant_type":    "ig_exchange_token",
		"client_secret": c.cfg.ClientSecret,
		"access_token":  shortLivedToken,
	})
}

// RefreshLongLivedToken performs the ig_refresh_token grant. The provider only
// refreshes tokens that are at least 24 hours old and not yet expired.
func (c *Client) RefreshLongLivedToken(ctx context.Context, accessToken string) (*LongLivedToken, error) {
	return c.longLivedToken(ctx, StepTokenRefresh, "/refresh_access_token", map[string]string{
		"grant_type":   "ig_refresh_token",
		"access_token": accessToken,
	})
}

func (c *Client) longLivedToken(ctx context.Context, step, path string, params map[string]string) (*LongLivedToken, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.graph + path)
	if err := checkResponse(step, resp, err); err != nil {
		return nil, err
	}

	var payload longLivedTokenPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, decodeError(step, resp, err)
	}
	if payload.AccessToken == "" {
		return nil, missingFieldError(step, resp, "access_token")
	}

	return &LongLivedToken{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresIn:   payload.ExpiresIn,
	}, nil
}

// FetchProfile reads /me with the fixed login field set.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       profileFields,
			"access_token": accessToken,
		}).
		Get(c.graph + "/me")
	if err := checkResponse(StepProfileFetch, resp, err); err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return nil, decodeError(StepProfileFetch, resp, err)
	}
	if p.ID == "" {
		return nil, missingFieldError(StepProfileFetch, resp, "id")
	}
	if p.Username == "" {
		return nil, missingFieldError(StepProfileFetch, resp, "username")
	}
	return &p, nil
}

// checkResponse turns a transport error or a non-2xx answer into an
// UpstreamAuthError.
func checkResponse(step string, resp *resty.Response, err error) error {
	if err != nil {
		upstream := &apperror.UpstreamAuthError{Step: step, Err: err}
		if resp != nil && resp.RawResponse != nil {
			upstream.Status = resp.StatusCode()
			upstream.Body = truncate(resp.Body())
		}
		return upstream
	}
	if !resp.IsSuccess() {
		return &apperror.UpstreamAuthError{
			Step:   step,
			Status: resp.StatusCode(),
			Body:   truncate(resp.Body()),
		}
	}
	return nil
}

// decodeError reports a 2xx answer whose body could not be parsed. Status is
// left at zero so the failure is treated as a provider fault, not a rejection.
func decodeError(step string, resp *resty.Response, err error) error {
	return &apperror.UpstreamAuthError{
		Step: step,
		Body: truncate(resp.Body()),
		Err:  fmt.Errorf("decoding response: %w", err),
	}
}

func missingFieldError(step string, resp *resty.Response, field string) error {
	return &apperror.UpstreamAuthError{
		Step: step,
		Body: truncate(resp.Body()),
		Err:  fmt.Errorf("response has no %s", field),
	}
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}

// redirectWithState appends state to the configured callback URL, keeping any
// query it already has.
func redirectWithState(redirectURI, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}
