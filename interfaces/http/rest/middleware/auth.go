package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"tra-backend/pkg/common"
	pkgerrors "tra-backend/pkg/errors"
)

// Auth validates the bearer token and places the authenticated user ID into
// the request context. When no secret is configured (local development),
// authentication is disabled and a fixed development user is assumed.
func Auth(secret, issuer string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), "dev-user")))
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				common.RespondError(w, pkgerrors.NewValidationError("missing bearer token").
					WithDetails(map[string]interface{}{"header": "Authorization"}))
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, pkgerrors.NewValidationError("unexpected signing method")
				}
				return []byte(secret), nil
			}, jwt.WithIssuer(issuer))
			if err != nil || !token.Valid || claims.Subject == "" {
				logger.Warn("rejected token", zap.Error(err))
				w.Header().Set("WWW-Authenticate", "Bearer")
				common.RespondJSON(w, http.StatusUnauthorized, common.ErrorResponse{
					Error:   "UNAUTHORIZED",
					Message: "invalid or expired token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), claims.Subject)))
		})
	}
}
