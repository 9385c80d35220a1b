package user_repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
)

type UserRepoContract interface {
	CountUser(ctx context.Context, filter entity.UserFilter) (int64, *app_error.AppError)
	SaveUser(ctx context.Context, model *entity.User) *app_error.AppError
	FindUserByID(ctx context.Context, id uuid.UUID) (*entity.User, *app_error.AppError)
	FindUserByEmail(ctx context.Context, email string) (*entity.User, *app_error.AppError)
}
