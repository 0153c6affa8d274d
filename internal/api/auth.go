package api

import (
	"log/slog"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerAuth rejects requests without a token accepted by verifier.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				writeErrorResponse(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if _, err := verifier.Verify(strings.TrimSpace(header[len(bearerPrefix):])); err != nil {
				slog.Warn("Rejected peer token", "remote_addr", r.RemoteAddr, "error", err)
				writeErrorResponse(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
