package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestProducer_EnqueueScoresByReadyTime(t *testing.T) {
	rdb := newTestRedis(t)
	producer := NewProducer(rdb)
	ctx := context.Background()

	now := time.Now().Unix()
	job := Job{
		ID:        "job-1",
		Type:      JobChatFanout,
		Payload:   MustMarshal(map[string]string{"conversation_id": "abc"}),
		Priority:  1,
		MaxRetry:  3,
		CreatedAt: now,
		ExpireAt:  now + 300,
	}
	require.NoError(t, producer.Enqueue(ctx, job))

	members, err := rdb.ZRangeWithScores(ctx, "priority_queue", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, members, 1)

	// priority 1 jumps one minute ahead of its creation time
	assert.Equal(t, float64(now-60), members[0].Score)

	var stored Job
	require.NoError(t, json.Unmarshal([]byte(members[0].Member.(string)), &stored))
	assert.Equal(t, job.ID, stored.ID)
	assert.Equal(t, JobChatFanout, stored.Type)
}

func TestProducer_HigherPriorityPopsFirst(t *testing.T) {
	rdb := newTestRedis(t)
	producer := NewProducer(rdb)
	ctx := context.Background()

	now := time.Now().Unix()
	low := Job{ID: "low", Type: JobChatFanout, Priority: 0, CreatedAt: now, ExpireAt: now + 300}
	high := Job{ID: "high", Type: JobChatFanout, Priority: 2, CreatedAt: now, ExpireAt: now + 300}

	require.NoError(t, producer.Enqueue(ctx, low))
	require.NoError(t, producer.Enqueue(ctx, high))

	members, err := rdb.ZRange(ctx, "priority_queue", 0, 0).Result()
	require.NoError(t, err)
	require.Len(t, members, 1)

	var first Job
	require.NoError(t, json.Unmarshal([]byte(members[0]), &first))
	assert.Equal(t, "high", first.ID)
}

func TestPubSub_FiltersOwnOrigin(t *testing.T) {
	rdb := newTestRedis(t)

	publisher := NewPubSub(rdb, "instance-a")
	same := NewPubSub(rdb, "instance-a")
	other := NewPubSub(rdb, "instance-b")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan Broadcast, 1)
	go other.Subscribe(ctx, func(b Broadcast) {
		received <- b
	})
	ignored := make(chan Broadcast, 1)
	go same.Subscribe(ctx, func(b Broadcast) {
		ignored <- b
	})

	// let the subscribers attach before publishing
	time.Sleep(100 * time.Millisecond)

	err := publisher.Publish(context.Background(), Broadcast{
		Kind:   "room",
		RoomID: "dm_a_b",
		Event:  "newMessage",
		Data:   MustMarshal(map[string]string{"content": "hi"}),
	})
	require.NoError(t, err)

	select {
	case b := <-received:
		assert.Equal(t, "instance-a", b.Origin)
		assert.Equal(t, "dm_a_b", b.RoomID)
		assert.Equal(t, "newMessage", b.Event)
	case <-ctx.Done():
		t.Fatal("foreign instance never received the broadcast")
	}

	select {
	case <-ignored:
		t.Fatal("publisher's own instance must filter its broadcasts")
	case <-time.After(200 * time.Millisecond):
	}
}
