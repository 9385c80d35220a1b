package chat_service

import (
	"context"

	"github.com/google/uuid"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	ws "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
)

type ChatServiceContract interface {
	// conversation resolution
	Resolve(ctx context.Context, requesterID uuid.UUID, userIDs []uuid.UUID) (*entity.Conversation, *app_error.AppError)

	// views
	GetChats(ctx context.Context, userID uuid.UUID) ([]chat_dto.ConversationSummary, *app_error.AppError)
	GetChat(ctx context.Context, userID, convID uuid.UUID, limit, offset int) (*chat_dto.GetChatResponse, *app_error.AppError)

	// room membership
	JoinRoom(ctx context.Context, userID uuid.UUID, roomID string) (*entity.Conversation, *app_error.AppError)

	// read state
	MarkConversationRead(ctx context.Context, userID, convID uuid.UUID) (*entity.Member, *app_error.AppError)
	ForceReadAll(ctx context.Context, userID uuid.UUID) (int64, *app_error.AppError)

	// messaging
	SendMessage(ctx context.Context, senderID uuid.UUID, req chat_dto.SendMessagePayload) (*entity.Message, *app_error.AppError)

	// conversation mutations
	RenameConversation(ctx context.Context, actorID, convID uuid.UUID, name string) (*entity.Conversation, *app_error.AppError)
	AddMembers(ctx context.Context, actorID, convID uuid.UUID, userIDs []uuid.UUID) *app_error.AppError
	RemoveMember(ctx context.Context, actorID, convID, targetUserID uuid.UUID) *app_error.AppError
	ToggleMute(ctx context.Context, userID, convID uuid.UUID) (*entity.Member, *app_error.AppError)

	// fan-out
	NotifyConversation(ctx context.Context, convID uuid.UUID) *app_error.AppError
	PushChatList(ctx context.Context, userID uuid.UUID, convID *uuid.UUID, client *ws.Client) *app_error.AppError
}
