package types

import "github.com/google/uuid"

// FanoutConversationPayload is carried by queued fan-out jobs: after a
// conversation mutation every active member's chat-list view is recomputed
// and pushed.
type FanoutConversationPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}
