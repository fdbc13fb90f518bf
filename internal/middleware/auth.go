package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
)

// TokenParser verifies a bearer token and returns its claims.
type TokenParser interface {
	Parse(tokenString string) (*Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// token's user ID and role in the request context.
func Authenticate(tokens TokenParser, log logger.Logger) func(http.Handler) http.Handler {
	log = log.Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "authorization token is not provided")
				return
			}
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Debugf("invalid authorization header format on %s", r.URL.Path)
				unauthorized(w, "authorization token format is invalid, expected 'Bearer <token>'")
				return
			}

			claims, err := tokens.Parse(parts[1])
			if err != nil {
				log.Debugf("token rejected on %s: %v", r.URL.Path, err)
				if errors.Is(err, ErrTokenExpired) {
					unauthorized(w, "token has expired")
					return
				}
				unauthorized(w, "token is invalid")
				return
			}

			ctx := WithUser(r.Context(), claims.UserID, entity.Role(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
