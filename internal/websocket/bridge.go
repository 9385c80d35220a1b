package websocket

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/queue"
)

// RunBridge replays fan-out events published by peer processes into this
// process's local directory. Blocks until ctx is done.
func (h *Hub) RunBridge(ctx context.Context, ps *queue.PubSub) {
	ps.Subscribe(ctx, func(b queue.Broadcast) {
		payload, err := json.Marshal(map[string]any{"event": b.Event, "data": b.Data})
		if err != nil {
			return
		}

		switch b.Kind {
		case "room":
			h.broadcastRaw(b.RoomID, payload)
		case "user":
			userID, err := uuid.Parse(b.UserID)
			if err != nil {
				log.Warn().Str("userID", b.UserID).Msg("ws: bridge received invalid user id")
				return
			}
			h.pushRawToUser(b.Namespace, userID, payload)
		default:
			log.Warn().Str("kind", b.Kind).Msg("ws: bridge received unknown broadcast kind")
		}
	})
}
