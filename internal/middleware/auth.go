package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/auth"
)

// RequireAccount returns middleware that verifies the bearer token and stores
// the account id in the request context. Browsers cannot set headers on a
// websocket upgrade, so the token may also come from the access_token query
// parameter.
func RequireAccount(secret []byte, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, string(apperr.Unauthorized), "missing credentials")
				return
			}

			accountID, err := auth.Verify(secret, token, now())
			if err != nil {
				slog.Debug("token rejected", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, string(apperr.Unauthorized), "invalid credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), accountID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
