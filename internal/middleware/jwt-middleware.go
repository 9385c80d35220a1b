package middleware

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
)

type claimsKey string

const UserClaimsKey claimsKey = "userClaims"

// JWTAuth verifies the bearer token and checks the user still has a live
// session in redis, so logout and revocation take effect before token expiry.
func JWTAuth(publicKey *rsa.PublicKey, redis *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAppError(w, app_error.Unauthenticated("Missing Authorization header", "auth"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeAppError(w, app_error.Unauthenticated("Invalid Authorization header format", "auth"))
				return
			}

			claims, err := utils.ParseAndVerifySign(parts[1], publicKey)
			if err != nil {
				log.Debug().Err(err).Msg("jwt verify failed")
				writeAppError(w, app_error.Unauthenticated("Invalid or expired token", "auth"))
				return
			}

			// a cache miss means the session was revoked or expired, not
			// that the check can be skipped
			sessionKey := fmt.Sprintf("session:%s", claims.Sub)
			session, cacheErr := utils.GetCacheData[types.Session](r.Context(), redis, sessionKey)
			if cacheErr != nil || session == nil {
				writeAppError(w, app_error.Unauthenticated("Session revoked or expired", "auth"))
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified claims JWTAuth stored, if any.
func ClaimsFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*utils.Claims)
	return claims, ok
}

func writeAppError(w http.ResponseWriter, appErr *app_error.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = appErr.JSON(w)
}
