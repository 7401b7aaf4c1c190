// Package api implements the NAARAD JSON API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
)

// AuthMiddleware returns middleware that validates HTTP basic credentials.
// If credentials is empty, all requests pass through (disabled mode).
// Failures answer with a JSON error instead of a plain-text body.
func AuthMiddleware(credentials map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(credentials) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			user, pass, ok := r.BasicAuth()
			want, known := credentials[user]
			if !ok || !known || subtle.ConstantTimeCompare([]byte(pass), []byte(want)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="naarad"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
