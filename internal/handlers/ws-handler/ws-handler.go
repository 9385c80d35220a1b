package ws_handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	chat_service "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/use-case/chat-case"
	ws "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
)

// WsHandler routes event envelopes received over a connection. Every failure
// is echoed back on the triggering event name on the same connection only;
// the socket stays open.
type WsHandler struct {
	Hub      *ws.Hub
	Auth     ws.AuthenticatorFunc
	Chat     chat_service.ChatServiceContract
	Validate *validator.Validate
}

func NewWsHandler(hub *ws.Hub, auth ws.AuthenticatorFunc, chat chat_service.ChatServiceContract) *WsHandler {
	return &WsHandler{
		Hub:      hub,
		Auth:     auth,
		Chat:     chat,
		Validate: validator.New(),
	}
}

func (h *WsHandler) HandleEvent(ctx context.Context, c *ws.Client, event string, data json.RawMessage) {
	if event == chat_dto.EventLogin {
		h.handleLogin(ctx, c, data)
		return
	}

	userID, ok := c.UserID()
	if !ok {
		c.SendError(event, "not authenticated")
		return
	}

	switch event {
	case chat_dto.EventGetChats:
		h.handleGetChats(ctx, c, userID)
	case chat_dto.EventGetChat:
		h.handleGetChat(ctx, c, userID, data)
	case chat_dto.EventJoinRoom:
		h.handleJoinRoom(ctx, c, userID, data)
	case chat_dto.EventOutRoom:
		h.handleOutRoom(c, data)
	case chat_dto.EventRead:
		h.handleRead(ctx, c, userID, data)
	case chat_dto.EventForceRead:
		h.handleForceRead(ctx, c, userID)
	case chat_dto.EventSendMessage:
		h.handleSendMessage(ctx, c, userID, data)
	default:
		c.SendError(event, fmt.Sprintf("unknown event: %s", event))
	}
}

// handleLogin binds an identity to the connection. A failed login leaves the
// connection open and unbound; only this connection sees the error.
func (h *WsHandler) handleLogin(ctx context.Context, c *ws.Client, data json.RawMessage) {
	var payload chat_dto.LoginPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(chat_dto.EventLogin, "invalid login payload")
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		c.SendError(chat_dto.EventLogin, "accessToken is required")
		return
	}

	identity, err := h.Auth(ctx, payload.AccessToken)
	if err != nil {
		c.SendError(chat_dto.EventLogin, err.Error())
		return
	}

	c.Bind(*identity)
	h.Hub.BindUser(c)
	c.SendEvent(chat_dto.EventLogin, identity)

	// a fresh chat-namespace connection starts from a full list
	if c.Namespace == ws.NamespaceChat {
		h.handleGetChats(ctx, c, identity.UserID)
	}
}

func (h *WsHandler) handleGetChats(ctx context.Context, c *ws.Client, userID uuid.UUID) {
	chats, err := h.Chat.GetChats(ctx, userID)
	if err != nil {
		c.SendError(chat_dto.EventGetChats, err.Message)
		return
	}
	c.SendEvent(chat_dto.EventGetChats, chats)
}

func (h *WsHandler) handleGetChat(ctx context.Context, c *ws.Client, userID uuid.UUID, data json.RawMessage) {
	var payload chat_dto.GetChatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(chat_dto.EventGetChat, "invalid payload")
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		c.SendError(chat_dto.EventGetChat, fmt.Sprintf("invalid fields: %v", err))
		return
	}

	resp, appErr := h.Chat.GetChat(ctx, userID, payload.ID, payload.Limit, payload.Offset)
	if appErr != nil {
		c.SendError(chat_dto.EventGetChat, appErr.Message)
		return
	}
	c.SendEvent(chat_dto.EventGetChat, resp)
}

func (h *WsHandler) handleJoinRoom(ctx context.Context, c *ws.Client, userID uuid.UUID, data json.RawMessage) {
	var payload chat_dto.RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
		c.SendError(chat_dto.EventJoinRoom, "room id is required")
		return
	}

	conv, appErr := h.Chat.JoinRoom(ctx, userID, payload.ID)
	if appErr != nil {
		c.SendError(chat_dto.EventJoinRoom, appErr.Message)
		return
	}

	h.Hub.JoinRoom(conv.RoomID, c)
	c.SendEvent(chat_dto.EventJoinRoom, chat_dto.SuccessPayload{Success: true})

	// the client rendering the room also wants its list refreshed
	go func() {
		if err := h.Chat.PushChatList(context.Background(), userID, &conv.ID, c); err != nil {
			log.Warn().Str("room", conv.RoomID).Msg("ws: chat-list push after join failed")
		}
	}()
}

func (h *WsHandler) handleOutRoom(c *ws.Client, data json.RawMessage) {
	var payload chat_dto.RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == "" {
		c.SendError(chat_dto.EventOutRoom, "room id is required")
		return
	}

	h.Hub.LeaveRoom(payload.ID, c)
	c.SendEvent(chat_dto.EventOutRoom, chat_dto.SuccessPayload{Success: true})
}

func (h *WsHandler) handleRead(ctx context.Context, c *ws.Client, userID uuid.UUID, data json.RawMessage) {
	var payload chat_dto.ReadPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ID == uuid.Nil {
		c.SendError(chat_dto.EventRead, "conversation id is required")
		return
	}

	if _, appErr := h.Chat.MarkConversationRead(ctx, userID, payload.ID); appErr != nil {
		c.SendError(chat_dto.EventRead, appErr.Message)
		return
	}
	c.SendEvent(chat_dto.EventRead, chat_dto.SuccessPayload{Success: true})
}

func (h *WsHandler) handleForceRead(ctx context.Context, c *ws.Client, userID uuid.UUID) {
	if _, appErr := h.Chat.ForceReadAll(ctx, userID); appErr != nil {
		c.SendError(chat_dto.EventForceRead, appErr.Message)
		return
	}
	c.SendEvent(chat_dto.EventForceRead, chat_dto.SuccessPayload{Success: true})
}

// handleSendMessage runs the send pipeline. Success is delivered through the
// newMessage room broadcast, not a direct reply.
func (h *WsHandler) handleSendMessage(ctx context.Context, c *ws.Client, userID uuid.UUID, data json.RawMessage) {
	var payload chat_dto.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(chat_dto.EventSendMessage, "invalid payload")
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		c.SendError(chat_dto.EventSendMessage, fmt.Sprintf("invalid fields: %v", err))
		return
	}

	if _, appErr := h.Chat.SendMessage(ctx, userID, payload); appErr != nil {
		c.SendError(chat_dto.EventSendMessage, appErr.Message)
	}
}
