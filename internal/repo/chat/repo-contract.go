package chat_repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
)

type ChatRepoContract interface {
	// conversations
	FindConversationByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, *app_error.AppError)
	FindConversationByRoomID(ctx context.Context, roomID string) (*entity.Conversation, *app_error.AppError)
	FindSelfConversation(ctx context.Context, userID uuid.UUID) (*entity.Conversation, *app_error.AppError)
	FindGroupConversationsOf(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, *app_error.AppError)
	CreateConversation(ctx context.Context, conv *entity.Conversation) *app_error.AppError
	SaveConversation(ctx context.Context, conv *entity.Conversation) *app_error.AppError
	ActiveConversationsFor(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, *app_error.AppError)

	// members
	FindMember(ctx context.Context, convID, userID uuid.UUID) (*entity.Member, *app_error.AppError)
	FindActiveMembers(ctx context.Context, convID uuid.UUID) ([]*entity.Member, *app_error.AppError)
	CreateMember(ctx context.Context, m *entity.Member) *app_error.AppError
	SaveMember(ctx context.Context, m *entity.Member) *app_error.AppError

	// messages
	CreateMessage(ctx context.Context, msg *entity.Message) *app_error.AppError
	FindMessageByID(ctx context.Context, id uuid.UUID) (*entity.Message, *app_error.AppError)
	HydrateMessage(ctx context.Context, id uuid.UUID) (*entity.Message, *app_error.AppError)
	GetMessages(ctx context.Context, convID uuid.UUID, limit, offset int) ([]*entity.Message, int64, *app_error.AppError)
	LastMessage(ctx context.Context, convID uuid.UUID) (*entity.Message, *app_error.AppError)

	// attachments
	FindAttachment(ctx context.Context, id uuid.UUID) (*entity.Attachment, *app_error.AppError)
	LinkAttachment(ctx context.Context, id, convID, msgID uuid.UUID) *app_error.AppError

	// read marks
	CreateReadMarks(ctx context.Context, marks []*entity.ReadMark) *app_error.AppError
	MarkRead(ctx context.Context, convID, memberID uuid.UUID) (int64, *app_error.AppError)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, *app_error.AppError)
	UnreadCount(ctx context.Context, convID, userID uuid.UUID) (int64, *app_error.AppError)
	SeenByAll(ctx context.Context, messageID uuid.UUID) (bool, *app_error.AppError)
}
