package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, job Job) error
}

type RedisProducer struct {
	Redis *redis.Client
}

func NewProducer(redis *redis.Client) Producer {
	return &RedisProducer{Redis: redis}
}

// Enqueue scores the job by its ready-at time, with each priority level
// jumping one minute ahead. Workers pop members whose score is <= now, so
// retries scheduled in the future stay parked until their backoff elapses.
func (p *RedisProducer) Enqueue(ctx context.Context, job Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}

	score := float64(job.CreatedAt) - float64(job.Priority)*60
	return p.Redis.ZAdd(ctx, "priority_queue", redis.Z{
		Score:  score,
		Member: jobBytes,
	}).Err()
}
