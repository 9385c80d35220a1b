package user_service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/user_dto"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	user_repo "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/repo/user"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

const sessionTTL = 7 * 24 * time.Hour

type UserService struct {
	AppState *state.AppState
	UserRepo user_repo.UserRepoContract
}

func NewUserService(appState *state.AppState) UserServiceContract {
	return &UserService{
		AppState: appState,
		UserRepo: user_repo.NewUserRepo(appState),
	}
}

func (u *UserService) Register(ctx context.Context, req user_dto.CreateUserRequest) (*user_dto.UserResponse, *app_error.AppError) {
	filter := entity.UserFilter{
		Email:    &req.Email,
		Username: &req.Username,
	}
	count, err := u.UserRepo.CountUser(ctx, filter)
	if err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, app_error.Conflict("username or email already registered", "credential-registered")
	}

	hashed, hashErr := utils.GenerateHash(req.Password)
	if hashErr != nil {
		return nil, app_error.Internal(hashErr.Error(), "password")
	}

	user := &entity.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		Roles:        []string{entity.RoleUser},
	}

	if err := u.UserRepo.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	return &user_dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Roles:     user.Roles,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (u *UserService) Login(ctx context.Context, req user_dto.LoginRequest) (*user_dto.UserResponse, *app_error.AppError) {
	user, err := u.UserRepo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if err.Code == 404 {
			return nil, app_error.Unauthenticated("invalid credentials", "credentials")
		}
		return nil, err
	}

	ok, verifyErr := utils.VerifyHash(user.PasswordHash, req.Password)
	if verifyErr != nil || !ok {
		return nil, app_error.Unauthenticated("invalid credentials", "credentials")
	}

	access, refresh, jti, signErr := utils.IssueNewTokens(user.ID.String(), user.Username, user.Roles, u.AppState.JwtSecret.Private)
	if signErr != nil {
		return nil, app_error.Internal("failed to issue tokens", "sign")
	}

	issueAt := time.Now().Unix()
	session := types.Session{
		UserId:   user.ID.String(),
		JTI:      jti,
		IssueAt:  issueAt,
		ExpireAt: issueAt + int64(sessionTTL.Seconds()),
		Status:   "valid",
	}

	sessionKey := fmt.Sprintf("session:%s", user.ID)
	if cacheErr := utils.SetCacheData(ctx, u.AppState.Redis, sessionKey, &session, sessionTTL); cacheErr != nil {
		return nil, app_error.Internal("failed to persist session", "redis")
	}

	return &user_dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Roles:     user.Roles,
		Token:     &access,
		Refresh:   &refresh,
		CreatedAt: user.CreatedAt,
	}, nil
}
