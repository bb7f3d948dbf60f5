// Package auth provides bearer-token middleware for issuer-facing endpoints.
// Verification endpoints stay public; issuance and revocation require an
// authenticated issuer identity.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"skillchain/pkg/requestcontext"
)

// TokenValidator validates an API bearer token and returns the issuer
// identity it was minted for.
type TokenValidator interface {
	ValidateToken(tokenString string) (identity string, err error)
}

// RequireIssuer rejects requests without a valid bearer token and stores the
// authenticated issuer identity in the request context.
func RequireIssuer(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "Missing bearer token")
				return
			}

			identity, err := validator.ValidateToken(token)
			if err != nil {
				if logger != nil {
					logger.WarnContext(r.Context(), "unauthorized access - invalid token",
						"error", err,
						"request_id", requestcontext.RequestID(r.Context()),
					)
				}
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithIssuer(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="skillchain"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
