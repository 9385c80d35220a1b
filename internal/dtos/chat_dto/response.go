package chat_dto

import (
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/entity"
)

// ConversationSummary is one row of a user's chat-list view.
type ConversationSummary struct {
	Conversation *entity.Conversation `json:"conversation"`
	UnreadCount  int64                `json:"unread_count"`
	LastMessage  *MessageView         `json:"last_message,omitempty"`
}

// MessageView is a hydrated message as broadcast to clients. SeenByAll is
// computed on demand, never stored.
type MessageView struct {
	*entity.Message
	SeenByAll bool `json:"seen_by_all"`
}

type GetChatResponse struct {
	Chat      *entity.Conversation `json:"chat"`
	Messages  []*entity.Message    `json:"messages"`
	Remaining int64                `json:"remaining"`
}
