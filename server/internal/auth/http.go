package auth

import (
	"encoding/json"
	"net/http"
)

// RequireAPIKey wraps next so that requests without a valid key get a 401
// JSON error. With auth disabled next is returned unchanged.
func RequireAPIKey(mode, header, key string, next http.Handler) http.Handler {
	c := NewChecker(mode, header, key)
	if !c.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Valid(r.Header.Values(c.header), r.Header.Values("Authorization")) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="benchboard"`)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	})
}
