package chat_service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/queue"
	ws "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
)

// GetChats assembles the user's chat-list view. Course-bound conversations
// only appear once the course is approved. Conversations with a last message
// sort by that message's update time descending; never-messaged conversations
// sink to the bottom but are never dropped.
func (c *ChatService) GetChats(ctx context.Context, userID uuid.UUID) ([]chat_dto.ConversationSummary, *app_error.AppError) {
	convs, err := c.ChatRepo.ActiveConversationsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	withMessage := make([]chat_dto.ConversationSummary, 0, len(convs))
	withoutMessage := make([]chat_dto.ConversationSummary, 0)
	for _, conv := range convs {
		if conv.CourseID != nil {
			if conv.Course == nil || conv.Course.Status != entity.CourseStatusApproved {
				continue
			}
		}

		unread, err := c.ChatRepo.UnreadCount(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}

		summary := chat_dto.ConversationSummary{
			Conversation: conv,
			UnreadCount:  unread,
		}

		last, err := c.ChatRepo.LastMessage(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		if last == nil {
			withoutMessage = append(withoutMessage, summary)
			continue
		}

		seen, err := c.ChatRepo.SeenByAll(ctx, last.ID)
		if err != nil {
			return nil, err
		}
		summary.LastMessage = &chat_dto.MessageView{Message: last, SeenByAll: seen}
		withMessage = append(withMessage, summary)
	}

	sort.SliceStable(withMessage, func(i, j int) bool {
		return withMessage[i].LastMessage.UpdatedAt.After(withMessage[j].LastMessage.UpdatedAt)
	})

	return append(withMessage, withoutMessage...), nil
}

// PushChatList pushes the user's recomputed chat list as an async getChats
// event. When a target client is given, the push goes to that connection only;
// otherwise every connection the user holds in the chat namespace receives it,
// on this process and on peers via pub/sub. A conversation id, when given,
// gates the push on the user being an active member of it.
func (c *ChatService) PushChatList(ctx context.Context, userID uuid.UUID, convID *uuid.UUID, client *ws.Client) *app_error.AppError {
	if convID != nil {
		if _, err := c.activeMember(ctx, *convID, userID); err != nil {
			return err
		}
	}

	chats, err := c.GetChats(ctx, userID)
	if err != nil {
		return err
	}

	if client != nil {
		if id, ok := client.UserID(); !ok || id != userID {
			return app_error.Forbidden("connection does not belong to this user", "connection")
		}
		client.SendEvent(chat_dto.EventGetChats, chats)
		return nil
	}

	c.pushUser(ctx, ws.NamespaceChat, userID, chat_dto.EventGetChats, chats)
	return nil
}

// NotifyConversation pushes fresh chat lists to every active member of the
// conversation. This is the worker-side half of queued fan-out jobs; members
// without a live connection anywhere simply receive nothing.
func (c *ChatService) NotifyConversation(ctx context.Context, convID uuid.UUID) *app_error.AppError {
	members, err := c.ChatRepo.FindActiveMembers(ctx, convID)
	if err != nil {
		return err
	}

	for _, m := range members {
		if pushErr := c.PushChatList(ctx, m.UserID, nil, nil); pushErr != nil {
			log.Warn().Err(pushErr).
				Stringer("conversationID", convID).
				Stringer("userID", m.UserID).
				Msg("chat: fanout push failed for member")
		}
	}
	return nil
}

// broadcastRoom emits an event to the local room and mirrors it to peer
// processes. Pub/sub failures are logged, never surfaced to the actor.
func (c *ChatService) broadcastRoom(ctx context.Context, roomID, event string, data any) {
	c.Hub.BroadcastToRoom(roomID, event, data)

	if c.PubSub == nil {
		return
	}
	err := c.PubSub.Publish(ctx, queue.Broadcast{
		Kind:   "room",
		RoomID: roomID,
		Event:  event,
		Data:   queue.MustMarshal(data),
	})
	if err != nil {
		log.Warn().Err(err).Str("roomID", roomID).Str("event", event).Msg("chat: room broadcast publish failed")
	}
}

func (c *ChatService) pushUser(ctx context.Context, namespace string, userID uuid.UUID, event string, data any) {
	c.Hub.PushToUser(namespace, userID, event, data)

	if c.PubSub == nil {
		return
	}
	err := c.PubSub.Publish(ctx, queue.Broadcast{
		Kind:      "user",
		Namespace: namespace,
		UserID:    userID.String(),
		Event:     event,
		Data:      queue.MustMarshal(data),
	})
	if err != nil {
		log.Warn().Err(err).Stringer("userID", userID).Str("event", event).Msg("chat: user push publish failed")
	}
}
