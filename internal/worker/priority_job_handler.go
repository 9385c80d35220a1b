package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/queue"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
)

func (wp *WorkerPool) HandleJob(ctx context.Context, job queue.Job) error {
	switch job.Type {
	case queue.JobChatFanout:
		return wp.handleChatFanout(ctx, job.Payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleChatFanout recomputes and pushes every active member's chat list for
// the mutated conversation. A failing push batch comes back through the
// retry/DLQ machinery instead of being lost.
func (wp *WorkerPool) handleChatFanout(ctx context.Context, raw json.RawMessage) error {
	var payload types.FanoutConversationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid fanout payload: %w", err)
	}

	if err := wp.chat.NotifyConversation(ctx, payload.ConversationID); err != nil {
		return fmt.Errorf("fanout for conversation %s: %s", payload.ConversationID, err.Message)
	}
	return nil
}
