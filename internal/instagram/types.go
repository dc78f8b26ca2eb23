package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ShortLivedToken is the result of the authorization-code exchange.
type ShortLivedToken struct {
	AccessToken string
	UserID      string
	Permissions []string
}

// LongLivedToken is the result of the ig_exchange_token and ig_refresh_token
// grants. ExpiresIn is nil when the provider omitted it.
type LongLivedToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   *int64
}

// ExpiresAt converts ExpiresIn into an absolute time relative to now, or nil
// when no lifetime was reported.
func (t *LongLivedToken) ExpiresAt(now time.Time) *time.Time {
	if t == nil || t.ExpiresIn == nil {
		return nil
	}
	at := now.Add(time.Duration(*t.ExpiresIn) * time.Second).UTC()
	return &at
}

// Profile is the subset of the /me fields the login flow requests. Only ID and
// Username are guaranteed by the provider.
//
// ID is the Instagram professional account id; ScopedUserID is the app-scoped
// user_id. Both may arrive as JSON numbers and are kept as decimal strings.
type Profile struct {
	ID                string  `json:"id"`
	ScopedUserID      *string `json:"user_id,omitempty"`
	Username          string  `json:"username"`
	Name              *string `json:"name,omitempty"`
	AccountType       *string `json:"account_type,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	FollowersCount    *int64  `json:"followers_count,omitempty"`
	MediaCount        *int64  `json:"media_count,omitempty"`
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	type plain Profile
	var raw struct {
		plain
		ID     flexID  `json:"id"`
		UserID *flexID `json:"user_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Profile(raw.plain)
	p.ID = string(raw.ID)
	p.ScopedUserID = nil
	if raw.UserID != nil && *raw.UserID != "" {
		s := string(*raw.UserID)
		p.ScopedUserID = &s
	}
	return nil
}

// profileFields is the fixed field set requested from /me.
var profileFields = strings.Join([]string{
	"id",
	"user_id",
	"username",
	"name",
	"account_type",
	"profile_picture_url",
	"followers_count",
	"media_count",
}, ",")

// flexID decodes an identifier the provider sends either as a JSON string or
// as a JSON number. Numbers are kept verbatim so 64-bit ids never pass through
// float64.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("instagram: id is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// permissionList accepts "a,b,c" as well as ["a","b","c"].
type permissionList []string

func (p *permissionList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = nil
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*p = items
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	*p = items
	return nil
}

// shortLivedTokenPayload is one element of the code-exchange response. The
// endpoint answers either with the object itself or with {"data":[object]}.
type shortLivedTokenPayload struct {
	AccessToken string         `json:"access_token"`
	UserID      flexID         `json:"user_id"`
	Permissions permissionList `json:"permissions"`
}

type shortLivedTokenEnvelope struct {
	Data []shortLivedTokenPayload `json:"data"`
	shortLivedTokenPayload
}

type longLivedTokenPayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   *int64 `json:"expires_in"`
}
