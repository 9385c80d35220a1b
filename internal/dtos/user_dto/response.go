package user_dto

import (
	"time"

	"github.com/google/uuid"
)

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Token     *string   `json:"token,omitempty"`
	Refresh   *string   `json:"refresh,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
