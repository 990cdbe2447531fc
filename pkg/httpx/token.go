package httpx

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TokenCookieName is the cookie carrying the session token.
const TokenCookieName = "access_token"

// Transport selects how the session token travels between client and server.
type Transport string

const (
	TransportBearer Transport = "bearer"
	TransportCookie Transport = "cookie"
	TransportAny    Transport = "any"
)

// ParseTransport validates a configured transport name.
func ParseTransport(s string) (Transport, error) {
	switch t := Transport(strings.ToLower(strings.TrimSpace(s))); t {
	case TransportBearer, TransportCookie, TransportAny:
		return t, nil
	default:
		return "", fmt.Errorf("httpx: unknown token transport %q", s)
	}
}

// UsesCookie reports whether tokens are delivered as a cookie.
func (t Transport) UsesCookie() bool { return t == TransportCookie || t == TransportAny }

// UsesBody reports whether tokens are returned in response bodies for use
// in the Authorization header.
func (t Transport) UsesBody() bool { return t == TransportBearer || t == TransportAny }

// TokenExtractor pulls the raw session token out of a request. It returns
// "" when the carrier is absent.
type TokenExtractor func(*http.Request) string

// BearerExtractor reads "Authorization: Bearer <token>".
func BearerExtractor(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CookieExtractor reads the named cookie.
func CookieExtractor(name string) TokenExtractor {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// FirstOf returns the first non-empty token from the extractors in order.
func FirstOf(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) string {
		for _, ex := range extractors {
			if tok := ex(r); tok != "" {
				return tok
			}
		}
		return ""
	}
}

// Extractor returns the TokenExtractor for t.
func (t Transport) Extractor() TokenExtractor {
	switch t {
	case TransportBearer:
		return BearerExtractor
	case TransportCookie:
		return CookieExtractor(TokenCookieName)
	default:
		return FirstOf(BearerExtractor, CookieExtractor(TokenCookieName))
	}
}

// SetTokenCookie stores token in an HttpOnly, SameSite=Strict cookie.
func SetTokenCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearTokenCookie expires the session cookie.
func ClearTokenCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
