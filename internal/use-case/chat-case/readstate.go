package chat_service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
)

// createReadMarks writes one mark per active member at send time. The sender's
// mark is pre-set read so their own message never counts as unread.
func (c *ChatService) createReadMarks(ctx context.Context, msg *entity.Message, members []*entity.Member) *app_error.AppError {
	now := time.Now()
	marks := make([]*entity.ReadMark, 0, len(members))
	for _, m := range members {
		mark := &entity.ReadMark{
			ID:             uuid.New(),
			MessageID:      msg.ID,
			MemberID:       m.ID,
			ConversationID: msg.ConversationID,
			View:           entity.ReadViewReceiver,
		}
		if m.ID == msg.MemberID {
			mark.View = entity.ReadViewSender
			mark.Read = true
			mark.ReadAt = &now
			mark.ForceRead = true
		}
		marks = append(marks, mark)
	}

	return c.ChatRepo.CreateReadMarks(ctx, marks)
}

// MarkConversationRead sets every unread mark of the caller's membership in
// the conversation. A newRead broadcast goes to the room only when something
// actually changed; marking an already-read conversation is a no-op.
func (c *ChatService) MarkConversationRead(ctx context.Context, userID, convID uuid.UUID) (*entity.Member, *app_error.AppError) {
	member, err := c.activeMember(ctx, convID, userID)
	if err != nil {
		return nil, err
	}

	affected, err := c.ChatRepo.MarkRead(ctx, convID, member.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return member, nil
	}

	conv, err := c.ChatRepo.FindConversationByID(ctx, convID)
	if err != nil {
		// marks are already committed; the broadcast is best-effort
		log.Warn().Err(err).Stringer("conversationID", convID).Msg("chat: read committed but conversation lookup failed")
		return member, nil
	}

	c.broadcastRoom(ctx, conv.RoomID, chat_dto.EventNewRead, member)
	if pushErr := c.PushChatList(ctx, userID, &convID, nil); pushErr != nil {
		log.Warn().Err(pushErr).Stringer("userID", userID).Msg("chat: chat-list push after read failed")
	}
	return member, nil
}

// ForceReadAll marks every unread mark the user owns, across all of their
// conversations. Only the caller's own chat list is refreshed; other members'
// seen-by-all flags are recomputed on their next view.
func (c *ChatService) ForceReadAll(ctx context.Context, userID uuid.UUID) (int64, *app_error.AppError) {
	affected, err := c.ChatRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}

	if pushErr := c.PushChatList(ctx, userID, nil, nil); pushErr != nil {
		log.Warn().Err(pushErr).Stringer("userID", userID).Msg("chat: chat-list push after forceRead failed")
	}
	return affected, nil
}
