package handler

import (
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// RedirectCookieName holds the site path to return to after login.
const RedirectCookieName = "oauth_redirect"

// redirectCookieTTL matches the state cookie: both only live for one OAuth
// round trip.
const redirectCookieTTL = 10 * time.Minute

// cookieJar sets and clears the site's cookies with one set of attributes.
// Every cookie is HttpOnly, SameSite=Lax and scoped to the whole site.
type cookieJar struct {
	secure bool
}

func (c cookieJar) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieJar) clear(w http.ResponseWriter, names ...string) {
	for _, name := range names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1, // tells the browser to delete the cookie immediately
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// cookieValue returns the named cookie's value, or "" if it was not sent.
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// safePath reports whether p is a site-relative path we may redirect to.
//
// OPEN REDIRECTS:
// "/bookings" is fine. "//evil.example" and "/\evil.example" are treated by
// browsers as protocol-relative URLs to another host, and anything with a
// scheme leaves the site, so all of those are rejected.
//
// http.Redirect runs path.Clean on relative targets, so "/./\evil.example"
// would reach the browser as "/\evil.example". The cleaned path is checked as
// well as the raw one. Backslashes and control characters are refused
// anywhere, also in percent-encoded form, because browsers strip or
// normalise them before resolving the URL.
func safePath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	decoded, err := url.PathUnescape(p)
	if err != nil || hasUnsafeByte(p) || hasUnsafeByte(decoded) {
		return false
	}

	pathPart, _, _ := strings.Cut(p, "?")
	for _, candidate := range []string{p, decoded, path.Clean(pathPart)} {
		if strings.HasPrefix(candidate, "//") {
			return false
		}
	}

	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func hasUnsafeByte(s string) bool {
	for i := 0; i < len(s); i++ {
		if b := s[i]; b == '\\' || b < 0x20 || b == 0x7f {
			return true
		}
	}
	return false
}

// pathOr returns p when it is safe, otherwise fallback.
func pathOr(p, fallback string) string {
	if safePath(p) {
		return p
	}
	return fallback
}
