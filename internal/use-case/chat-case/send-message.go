package chat_service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils"
)

// SendMessage runs the send pipeline as a strict sequence: validate first,
// then persist, link attachments, write read marks, broadcast, fan out. All
// referenced entities (attachments, reply target) are checked before the
// first write so a failed validation never leaves partial state behind.
func (c *ChatService) SendMessage(ctx context.Context, senderID uuid.UUID, req chat_dto.SendMessagePayload) (*entity.Message, *app_error.AppError) {
	sender, err := c.activeMember(ctx, req.ID, senderID)
	if err != nil {
		return nil, err
	}

	conv, err := c.ChatRepo.FindConversationByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Content == "" && len(req.Attachments) == 0 {
		return nil, app_error.InvalidRequest("message must have content or attachments", "content")
	}

	for _, attID := range req.Attachments {
		att, err := c.ChatRepo.FindAttachment(ctx, attID)
		if err != nil {
			return nil, err
		}
		if att.UserID != senderID {
			return nil, app_error.Forbidden("attachment does not belong to sender", "attachments")
		}
		if att.MessageID != nil {
			return nil, app_error.Conflict("attachment is already linked to a message", "attachments")
		}
	}

	if req.TargetMessageID != nil {
		target, err := c.ChatRepo.FindMessageByID(ctx, *req.TargetMessageID)
		if err != nil {
			return nil, err
		}
		if target.ConversationID != req.ID {
			return nil, app_error.InvalidRequest("reply target belongs to another conversation", "targetMessageId")
		}
	}

	// active membership snapshot taken here decides who gets a read mark
	members, err := c.ChatRepo.FindActiveMembers(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	msg := &entity.Message{
		ID:              uuid.New(),
		ConversationID:  conv.ID,
		MemberID:        sender.ID,
		Content:         utils.MaskProfanity(req.Content),
		TargetMessageID: req.TargetMessageID,
	}
	if err := c.ChatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	for _, attID := range req.Attachments {
		if err := c.ChatRepo.LinkAttachment(ctx, attID, conv.ID, msg.ID); err != nil {
			return nil, err
		}
	}

	if err := c.createReadMarks(ctx, msg, members); err != nil {
		return nil, err
	}

	hydrated, err := c.ChatRepo.HydrateMessage(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	c.broadcastRoom(ctx, conv.RoomID, chat_dto.EventNewMessage, hydrated)

	c.autoReadPresent(ctx, conv, members, sender.ID)

	for _, m := range members {
		if pushErr := c.PushChatList(ctx, m.UserID, nil, nil); pushErr != nil {
			log.Warn().Err(pushErr).
				Stringer("conversationID", conv.ID).
				Stringer("userID", m.UserID).
				Msg("chat: chat-list push after send failed")
		}
	}

	return hydrated, nil
}

// autoReadPresent marks the fresh message read for every member whose
// connection is already joined to the room; someone looking at the open
// conversation should not accrue unread state.
func (c *ChatService) autoReadPresent(ctx context.Context, conv *entity.Conversation, members []*entity.Member, senderMemberID uuid.UUID) {
	for _, m := range members {
		if m.ID == senderMemberID {
			continue
		}
		if !c.Hub.IsUserInRoom(conv.RoomID, m.UserID) {
			continue
		}

		affected, err := c.ChatRepo.MarkRead(ctx, conv.ID, m.ID)
		if err != nil {
			log.Warn().Err(err).Stringer("memberID", m.ID).Msg("chat: auto-read failed")
			continue
		}
		if affected > 0 {
			c.broadcastRoom(ctx, conv.RoomID, chat_dto.EventNewRead, m)
		}
	}
}
