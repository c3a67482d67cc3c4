package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "burogate/pkg/domain"
	"burogate/pkg/requestcontext"
)

// IdentityValidator validates a bearer token and returns the caller identity
// it carries. Token issuance lives outside this service; the gateway only
// verifies and extracts.
type IdentityValidator interface {
	ValidateToken(tokenString string) (*requestcontext.CallerIdentity, error)
}

// RequireAuth validates the Authorization header and injects the caller
// identity into the request context. Inactive accounts are rejected before
// any service is reached.
func RequireAuth(validator IdentityValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			ident, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			if ident.EntityID == (id.EntityID(0)) {
				logger.WarnContext(ctx, "unauthorized access - token lacks entity",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, *ident)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
