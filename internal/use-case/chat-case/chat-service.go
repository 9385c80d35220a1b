package chat_service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/config"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/queue"
	chat_repo "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/repo/chat"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
	ws "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

const defaultHistoryPageSize = 12

// historyPageSize is the page size used when a history request carries no
// explicit limit. Falls back to the compiled default when no config is loaded.
func historyPageSize() int {
	if config.Conf != nil && config.Conf.CHAT.HistoryPageSize > 0 {
		return config.Conf.CHAT.HistoryPageSize
	}
	return defaultHistoryPageSize
}

type ChatService struct {
	AppState *state.AppState
	ChatRepo chat_repo.ChatRepoContract
	Hub      *ws.Hub
	PubSub   *queue.PubSub
	Producer queue.Producer
}

func NewChatService(appState *state.AppState, hub *ws.Hub, pubsub *queue.PubSub, producer queue.Producer) ChatServiceContract {
	return &ChatService{
		AppState: appState,
		ChatRepo: chat_repo.NewChatRepo(appState),
		Hub:      hub,
		PubSub:   pubsub,
		Producer: producer,
	}
}

// activeMember resolves the caller's membership and checks it is active.
func (c *ChatService) activeMember(ctx context.Context, convID, userID uuid.UUID) (*entity.Member, *app_error.AppError) {
	member, err := c.ChatRepo.FindMember(ctx, convID, userID)
	if err != nil {
		if err.Code == 404 {
			return nil, app_error.Forbidden("not a member of this conversation", "membership")
		}
		return nil, err
	}
	if member.Status != entity.MemberStatusActive {
		return nil, app_error.Forbidden("not an active member of this conversation", "membership")
	}
	return member, nil
}

func (c *ChatService) GetChat(ctx context.Context, userID, convID uuid.UUID, limit, offset int) (*chat_dto.GetChatResponse, *app_error.AppError) {
	if _, err := c.activeMember(ctx, convID, userID); err != nil {
		return nil, err
	}

	conv, err := c.ChatRepo.FindConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = historyPageSize()
	}
	if offset < 0 {
		offset = 0
	}

	messages, total, err := c.ChatRepo.GetMessages(ctx, convID, limit, offset)
	if err != nil {
		return nil, err
	}

	remaining := total - int64(offset) - int64(len(messages))
	if remaining < 0 {
		remaining = 0
	}

	return &chat_dto.GetChatResponse{
		Chat:      conv,
		Messages:  messages,
		Remaining: remaining,
	}, nil
}

// JoinRoom verifies the caller is an active member of the conversation behind
// the room key. The directory-level channel join only happens after this
// check passes.
func (c *ChatService) JoinRoom(ctx context.Context, userID uuid.UUID, roomID string) (*entity.Conversation, *app_error.AppError) {
	conv, err := c.ChatRepo.FindConversationByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if _, err := c.activeMember(ctx, conv.ID, userID); err != nil {
		return nil, err
	}

	return conv, nil
}

func (c *ChatService) RenameConversation(ctx context.Context, actorID, convID uuid.UUID, name string) (*entity.Conversation, *app_error.AppError) {
	member, err := c.activeMember(ctx, convID, actorID)
	if err != nil {
		return nil, err
	}

	conv, err := c.ChatRepo.FindConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}

	if conv.Type == entity.ConversationGroup && member.Role != entity.MemberRoleAdmin {
		return nil, app_error.Forbidden("only admins can rename a group conversation", "role")
	}

	conv.Name = name
	if err := c.ChatRepo.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	c.enqueueFanout(ctx, convID)
	return conv, nil
}

func (c *ChatService) AddMembers(ctx context.Context, actorID, convID uuid.UUID, userIDs []uuid.UUID) *app_error.AppError {
	actor, err := c.activeMember(ctx, convID, actorID)
	if err != nil {
		return err
	}

	conv, err := c.ChatRepo.FindConversationByID(ctx, convID)
	if err != nil {
		return err
	}

	if conv.Type != entity.ConversationGroup && conv.Type != entity.ConversationCourseGroup {
		return app_error.InvalidRequest("members can only be added to group conversations", "type")
	}
	if actor.Role != entity.MemberRoleAdmin {
		return app_error.Forbidden("only admins can add members", "role")
	}

	for _, userID := range userIDs {
		existing, findErr := c.ChatRepo.FindMember(ctx, convID, userID)
		if findErr == nil {
			if existing.Status == entity.MemberStatusActive {
				return app_error.Conflict("user is already a member", "member")
			}
			// re-adding a removed member updates the row, never duplicates
			existing.Status = entity.MemberStatusActive
			if saveErr := c.ChatRepo.SaveMember(ctx, existing); saveErr != nil {
				return saveErr
			}
			continue
		}
		if findErr.Code != 404 {
			return findErr
		}

		m := &entity.Member{
			ID:             uuid.New(),
			ConversationID: convID,
			UserID:         userID,
			Role:           entity.MemberRoleRegular,
			Status:         entity.MemberStatusActive,
		}
		if createErr := c.ChatRepo.CreateMember(ctx, m); createErr != nil {
			return createErr
		}
	}

	c.enqueueFanout(ctx, convID)
	return nil
}

func (c *ChatService) RemoveMember(ctx context.Context, actorID, convID, targetUserID uuid.UUID) *app_error.AppError {
	actor, err := c.activeMember(ctx, convID, actorID)
	if err != nil {
		return err
	}

	if actorID != targetUserID && actor.Role != entity.MemberRoleAdmin {
		return app_error.Forbidden("only admins can remove other members", "role")
	}

	target, err := c.ChatRepo.FindMember(ctx, convID, targetUserID)
	if err != nil {
		return err
	}
	if target.Status == entity.MemberStatusRemoved {
		return app_error.Conflict("member already removed", "member")
	}

	target.Status = entity.MemberStatusRemoved
	if err := c.ChatRepo.SaveMember(ctx, target); err != nil {
		return err
	}

	c.enqueueFanout(ctx, convID)
	return nil
}

func (c *ChatService) ToggleMute(ctx context.Context, userID, convID uuid.UUID) (*entity.Member, *app_error.AppError) {
	member, err := c.activeMember(ctx, convID, userID)
	if err != nil {
		return nil, err
	}

	member.Muted = !member.Muted
	if err := c.ChatRepo.SaveMember(ctx, member); err != nil {
		return nil, err
	}

	c.enqueueFanout(ctx, convID)
	return member, nil
}

// enqueueFanout schedules a durable fan-out job for a conversation mutation.
// The worker pool recomputes and pushes every active member's chat list; the
// queue gives retries and a DLQ if a push batch fails.
func (c *ChatService) enqueueFanout(ctx context.Context, convID uuid.UUID) {
	if c.Producer == nil {
		return
	}

	job := queue.Job{
		ID:        uuid.New().String(),
		Type:      queue.JobChatFanout,
		Payload:   queue.MustMarshal(types.FanoutConversationPayload{ConversationID: convID}),
		Priority:  1,
		MaxRetry:  3,
		CreatedAt: time.Now().Unix(),
		ExpireAt:  time.Now().Add(5 * time.Minute).Unix(),
	}
	if err := c.Producer.Enqueue(ctx, job); err != nil {
		log.Error().Err(err).Stringer("conversationID", convID).Msg("chat: failed to enqueue fanout job")
	}
}
