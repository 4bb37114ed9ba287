package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth rejects requests that do not present apiKey as a Bearer token or in
// the X-API-Key header. WebSocket upgrades may pass it as the api_key query
// parameter instead, since browsers cannot set headers on them. An empty
// apiKey disables the check.
func Auth(apiKey string) func(http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			switch {
			case token == "":
				writeError(w, http.StatusUnauthorized, "missing authentication token")
			case subtle.ConstantTimeCompare([]byte(token), want) != 1:
				writeError(w, http.StatusUnauthorized, "invalid authentication token")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestToken(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	if isWebSocketUpgrade(r) {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
