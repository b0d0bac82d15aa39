package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware extracts and verifies the bearer token, stashing the user id in
// the request context. Requests without a token pass through unauthenticated:
// the repository layer routes them to the local store rather than rejecting
// them, so this middleware never 401s on absence, only on malformed tokens.
func Middleware(sessions *Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				http.Error(w, "malformed authorization header", http.StatusUnauthorized)
				return
			}
			userID, err := sessions.VerifyToken(token)
			if err != nil {
				logger.Debug("rejected bearer token", "error", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
