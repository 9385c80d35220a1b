package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/queue"
	chat_service "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/use-case/chat-case"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
)

type WorkerPool struct {
	Redis      *redis.Client
	Mongo      *mongo.Client
	DLQConfig  types.DLQRetryConfig
	WorkerNum  int
	JobChannel chan string
	wg         sync.WaitGroup
	chat       chat_service.ChatServiceContract
}

func NewWorkerPool(redis *redis.Client, mongo *mongo.Client, dlqConfig types.DLQRetryConfig, workerNum int, chat chat_service.ChatServiceContract) *WorkerPool {
	return &WorkerPool{
		Redis:      redis,
		Mongo:      mongo,
		DLQConfig:  dlqConfig,
		WorkerNum:  workerNum,
		JobChannel: make(chan string, 100),
		chat:       chat,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	log.Info().Msgf("Starting worker pool with %d workers", wp.WorkerNum)

	for i := 0; i < wp.WorkerNum; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}

	go func() {
		defer close(wp.JobChannel)
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping worker pool")
				return
			default:
				if !wp.dispatchDue(ctx) {
					time.Sleep(pollInterval)
				}
			}
		}
	}()
}

const pollInterval = 1 * time.Second

// dispatchDue pops the earliest due job into the job channel. Returns false
// when nothing is due or redis is unreachable; the poll loop sleeps on false
// instead of spinning against a down backend.
func (wp *WorkerPool) dispatchDue(ctx context.Context) bool {
	now := float64(time.Now().Unix())
	result, err := wp.Redis.ZRangeByScore(ctx, "priority_queue", &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%f", now),
		Offset: 0,
		Count:  1,
	}).Result()

	if err != nil {
		log.Error().Err(err).Msg("Worker: failed to pop job")
		return false
	}
	if len(result) == 0 {
		return false
	}

	payload := result[0]
	wp.Redis.ZRem(ctx, "priority_queue", payload)
	wp.JobChannel <- payload
	return true
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Info().Msgf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("Worker %d stopping", id)
			return
		case payload, ok := <-wp.JobChannel:
			if !ok {
				return
			}

			var job queue.Job
			if err := json.Unmarshal([]byte(payload), &job); err != nil {
				log.Warn().Err(err).Msgf("Worker %d: Failed to unmarshal job payload", id)
				continue
			}
			if err := wp.HandleJob(ctx, job); err != nil {
				job.Retry++
				job.ErrorMsg = err.Error()

				now := time.Now().Unix()
				if job.Retry >= job.MaxRetry || now > job.ExpireAt {
					log.Error().Str("job_id", job.ID).Msg("Job moved to DLQ")
					dlqBytes, _ := json.Marshal(job)
					wp.Redis.RPush(ctx, "priority_queue_dlq", dlqBytes)

					// Dead Letter Alert
					sendDLA(job)
				} else {
					// retry with backoff
					delay := time.Duration(5*(1<<job.Retry)) * time.Second // exponential backoff
					retryAt := time.Now().Add(delay).Unix()

					jobBytes, _ := json.Marshal(job)
					wp.Redis.ZAdd(ctx, "priority_queue", redis.Z{
						Score:  float64(retryAt),
						Member: jobBytes,
					})
					log.Warn().Str("job_id", job.ID).Msgf("Retrying in %v seconds (%d/%d)", delay.Seconds(), job.Retry, job.MaxRetry)
				}
			}
		}
	}
}

var dlaCache = make(map[string]time.Time)
var dlaMu sync.Mutex

func sendDLA(job queue.Job) {
	dlaMu.Lock()
	defer dlaMu.Unlock()

	now := time.Now()
	lastAlert, ok := dlaCache[job.Type]
	if ok && now.Sub(lastAlert) < 10*time.Minute {
		return
	}

	log.Error().Str("job_id", job.ID).Str("type", job.Type).Str("error", job.ErrorMsg).Msg("Dead Letter Alert: Job failed permanently")

	dlaCache[job.Type] = now
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	log.Info().Msg("All workers have stopped")
}
