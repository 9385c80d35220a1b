package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const fanoutChannel = "chat_fanout"

// Broadcast is an inter-process fan-out event. Each server process holds an
// independent connection directory, so every realtime push is also published
// here; peer processes replay it into their own local hubs. Origin filters
// out the publisher's own events.
type Broadcast struct {
	Origin    string          `json:"origin"`
	Kind      string          `json:"kind"` // "room" or "user"
	Namespace string          `json:"namespace,omitempty"`
	RoomID    string          `json:"room_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

type PubSub struct {
	Redis      *redis.Client
	InstanceID string
}

func NewPubSub(rdb *redis.Client, instanceID string) *PubSub {
	return &PubSub{Redis: rdb, InstanceID: instanceID}
}

func (p *PubSub) Publish(ctx context.Context, b Broadcast) error {
	b.Origin = p.InstanceID
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return p.Redis.Publish(ctx, fanoutChannel, payload).Err()
}

// Subscribe delivers foreign-origin broadcasts to handle until ctx is done.
func (p *PubSub) Subscribe(ctx context.Context, handle func(Broadcast)) {
	sub := p.Redis.Subscribe(ctx, fanoutChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pubsub: subscriber stopping")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var b Broadcast
			if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
				log.Warn().Err(err).Msg("pubsub: invalid broadcast payload")
				continue
			}
			if b.Origin == p.InstanceID {
				continue
			}
			handle(b)
		}
	}
}
