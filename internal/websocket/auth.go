package websocket

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	user_repo "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/repo/user"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils"
)

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// AuthenticatorFunc validates a bearer credential presented over a connection
// and resolves it to a user identity with role memberships.
type AuthenticatorFunc func(ctx context.Context, accessToken string) (*Identity, error)

// JWTAuthenticator verifies the RS256 signature, checks the redis-backed
// session is still live, and resolves the user row for the identity snapshot.
func JWTAuthenticator(publicKey *rsa.PublicKey, rdb *redis.Client, users user_repo.UserRepoContract) AuthenticatorFunc {
	return func(ctx context.Context, accessToken string) (*Identity, error) {
		if accessToken == "" {
			return nil, &AuthError{Message: "missing access token"}
		}

		claims, err := utils.ParseAndVerifySign(accessToken, publicKey)
		if err != nil {
			return nil, &AuthError{Message: "invalid or expired token"}
		}

		userID, err := uuid.Parse(claims.Sub)
		if err != nil {
			return nil, &AuthError{Message: "invalid token subject"}
		}

		sessionKey := fmt.Sprintf("session:%s", claims.Sub)
		exists, err := rdb.Exists(ctx, sessionKey).Result()
		if err != nil || exists == 0 {
			return nil, &AuthError{Message: "session not found or revoked"}
		}

		user, appErr := users.FindUserByID(ctx, userID)
		if appErr != nil {
			return nil, &AuthError{Message: "user not found"}
		}

		return &Identity{
			UserID:   user.ID,
			Username: user.Username,
			Roles:    user.Roles,
		}, nil
	}
}
