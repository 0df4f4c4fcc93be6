package auth

import (
	"net/http"
	"strings"
)

const accessTokenCookie = "access_token"

// ExtractAccessToken reads the access token from the cookie, falling back to
// a Bearer Authorization header.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return ""
}

// FromRequest returns the access claims carried by r. A request without a
// token yields (nil, nil).
func (m *Manager) FromRequest(r *http.Request) (*Claims, error) {
	tokenStr := ExtractAccessToken(r)
	if tokenStr == "" {
		return nil, nil
	}
	return m.Parse(tokenStr, TokenTypeAccess)
}
