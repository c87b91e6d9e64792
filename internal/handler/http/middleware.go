package handler

import (
	"context"
	"github.com/rookgm/connexmart/internal/models"
	"net/http"
	"strings"
)

type contextKey string

const (
	authPayloadKey contextKey = "auth_payload"
)

const bearerPrefix = "Bearer "

// TokenService verifies caller tokens issued by account service
type TokenService interface {
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}

// AuthMiddleware gets the bearer token from the Authorization header and passes its payload to the context
// 401 — токен не передан;
// 403 — токен недействителен.
func AuthMiddleware(ts TokenService) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				writeMessage(w, http.StatusUnauthorized, "Access token required")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "Access token required")
				return
			}

			payload, err := ts.VerifyToken(token)
			if err != nil {
				writeMessage(w, http.StatusForbidden, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), authPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// getAuthPayload extracts authorization token payload from context
func getAuthPayload(ctx context.Context, key contextKey) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(key).(*models.TokenPayload)
	if !ok || payload == nil {
		return nil, false
	}
	return payload, true
}
