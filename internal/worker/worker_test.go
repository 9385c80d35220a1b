package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
)

func newTestPool(t *testing.T, addr string) *WorkerPool {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	return NewWorkerPool(rdb, nil, types.DLQRetryConfig{}, 1, nil)
}

func TestDispatchDue_DeliversDueJob(t *testing.T) {
	mr := miniredis.RunT(t)
	wp := newTestPool(t, mr.Addr())
	ctx := context.Background()

	payload := `{"id":"j1","type":"chat.fanout"}`
	require.NoError(t, wp.Redis.ZAdd(ctx, "priority_queue", redis.Z{
		Score:  float64(time.Now().Add(-time.Minute).Unix()),
		Member: payload,
	}).Err())

	require.True(t, wp.dispatchDue(ctx))
	assert.Equal(t, payload, <-wp.JobChannel)

	// the popped member is gone from the queue
	n, err := wp.Redis.ZCard(ctx, "priority_queue").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatchDue_LeavesFutureJobsParked(t *testing.T) {
	mr := miniredis.RunT(t)
	wp := newTestPool(t, mr.Addr())
	ctx := context.Background()

	require.NoError(t, wp.Redis.ZAdd(ctx, "priority_queue", redis.Z{
		Score:  float64(time.Now().Add(time.Hour).Unix()),
		Member: `{"id":"retry-later"}`,
	}).Err())

	assert.False(t, wp.dispatchDue(ctx))

	n, err := wp.Redis.ZCard(ctx, "priority_queue").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDispatchDue_ReportsBackoffWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	wp := newTestPool(t, addr)

	// a failed pop must report false so the poll loop sleeps instead of
	// spinning against the dead connection
	assert.False(t, wp.dispatchDue(context.Background()))
}
