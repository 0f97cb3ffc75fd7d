package middleware

import (
	"net/http"
	"staybook/pkg/auth"
	"staybook/pkg/logger"
	"strings"
)

// RequireJWT rejects requests without a valid bearer token and stores the
// token's subject as the owner id of the request.
func RequireJWT(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				rejectUnauthorized(w, log, r, "missing bearer token")
				return
			}

			ownerID, err := auth.Parse(strings.TrimSpace(raw), secret)
			if err != nil {
				log.Debug("Token verification failed", "request_id", requestIDFrom(r), "error", err)
				rejectUnauthorized(w, log, r, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithOwner(r.Context(), ownerID)))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Unauthorized request",
		"request_id", requestIDFrom(r),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="staybook"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","error":"` + reason + `"}`))
}
