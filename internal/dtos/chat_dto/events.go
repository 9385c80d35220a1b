package chat_dto

import "github.com/google/uuid"

// Websocket event names. Client errors are emitted back on the same event
// name that triggered them.
const (
	EventLogin       = "login"
	EventGetChats    = "getChats"
	EventGetChat     = "getChat"
	EventJoinRoom    = "joinRoom"
	EventOutRoom     = "outRoom"
	EventRead        = "read"
	EventForceRead   = "forceRead"
	EventSendMessage = "sendMessage"
	EventNewMessage  = "newMessage"
	EventNewRead     = "newRead"
)

type LoginPayload struct {
	AccessToken string `json:"accessToken" validate:"required"`
}

type GetChatPayload struct {
	ID     uuid.UUID `json:"id" validate:"required"`
	Limit  int       `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset int       `json:"offset" validate:"omitempty,min=0"`
}

type RoomPayload struct {
	// Room key for joinRoom/outRoom.
	ID string `json:"id" validate:"required"`
}

type ReadPayload struct {
	// Conversation id.
	ID uuid.UUID `json:"id" validate:"required"`
}

type SendMessagePayload struct {
	// Conversation id.
	ID              uuid.UUID   `json:"id" validate:"required"`
	Content         string      `json:"content" validate:"required_without=Attachments,max=10000"`
	Attachments     []uuid.UUID `json:"attachments,omitempty"`
	TargetMessageID *uuid.UUID  `json:"targetMessageId,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type SuccessPayload struct {
	Success bool `json:"success"`
}
