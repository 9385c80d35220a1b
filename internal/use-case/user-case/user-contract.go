package user_service

import (
	"context"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/user_dto"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
)

type UserServiceContract interface {
	Register(ctx context.Context, req user_dto.CreateUserRequest) (*user_dto.UserResponse, *app_error.AppError)
	Login(ctx context.Context, req user_dto.LoginRequest) (*user_dto.UserResponse, *app_error.AppError)
}
