package user_repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

type UserRepo struct {
	AppState *state.AppState
}

func NewUserRepo(appState *state.AppState) UserRepoContract {
	return &UserRepo{
		AppState: appState,
	}
}

func (r *UserRepo) CountUser(ctx context.Context, filter entity.UserFilter) (int64, *app_error.AppError) {
	var count int64

	query := r.AppState.DB.WithContext(ctx).Model(&entity.User{})

	if filter.Email != nil {
		query = query.Where("email = ?", filter.Email)
	}

	if filter.Username != nil {
		query = query.Or("username = ?", filter.Username)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, app_error.Internal("unexpected server error", "db-count")
	}
	return count, nil
}

func (r *UserRepo) SaveUser(ctx context.Context, model *entity.User) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Create(model).Error; err != nil {
		return app_error.Internal("unexpected error occur when trying to create user", "db-create")
	}
	return nil
}

func (r *UserRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*entity.User, *app_error.AppError) {
	var user entity.User
	if err := r.AppState.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("cannot find user", "user-id")
		}
		return nil, app_error.Internal("unexpected error occur when fetch user", "db-error")
	}
	return &user, nil
}

func (r *UserRepo) FindUserByEmail(ctx context.Context, email string) (*entity.User, *app_error.AppError) {
	var user entity.User
	if err := r.AppState.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("cannot find user", "user-credential")
		}
		return nil, app_error.Internal("unexpected error occur when fetch user", "db-error")
	}
	return &user, nil
}
