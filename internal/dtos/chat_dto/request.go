package chat_dto

import "github.com/google/uuid"

type ResolveConversationRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"required,min=1,dive,required"`
}

type RenameConversationRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

type AddMembersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"required,min=1,dive,required"`
}
