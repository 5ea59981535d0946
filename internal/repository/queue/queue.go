// Package queue schedules processing jobs on the Redis-backed task queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
	"github.com/Boptone/boptone-ai-sub008/internal/telemetry"
)

// ErrDuplicateJob indicates a processing job for the same item is already
// pending or active. Enqueue callers treat this as idempotent success.
var ErrDuplicateJob = errors.New("processing job already queued or active")

// Client schedules processing jobs.
type Client interface {
	EnqueueProcessing(ctx context.Context, payload model.ProcessingPayload) error
	Close() error
}

// Options configure the queue connection and job policy.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MaxRetry      int
	Timeout       time.Duration
}

// RedisConnOpt converts the options into the connection form asynq consumers
// use.
func (o Options) RedisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     o.RedisAddr,
		Password: o.RedisPassword,
		DB:       o.RedisDB,
	}
}

// AsynqClient enqueues processing jobs with deterministic task ids so
// repeated calls for the same item collapse onto one pending or active job.
type AsynqClient struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
}

// NewAsynqClient connects to the queue backend, verifying reachability before
// use so a misconfigured deployment fails at startup rather than on the first
// enqueue.
func NewAsynqClient(opts Options) (*AsynqClient, error) {
	ping := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})
	defer ping.Close()

	if err := ping.Ping(context.Background()).Err(); err != nil {
		telemetry.Logger.Error("System Error: Failed to connect to Redis", zap.Error(err))
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	telemetry.Logger.Info("Connected to Redis", zap.String("addr", opts.RedisAddr))

	return &AsynqClient{
		client:   asynq.NewClient(opts.RedisConnOpt()),
		maxRetry: opts.MaxRetry,
		timeout:  opts.Timeout,
	}, nil
}

// EnqueueProcessing schedules a processing job for a media item. Calling this
// again while a job for the same item is pending or active returns
// ErrDuplicateJob instead of creating a second concurrent job.
func (c *AsynqClient) EnqueueProcessing(ctx context.Context, payload model.ProcessingPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal processing payload: %w", err)
	}

	task := asynq.NewTask(model.TaskTypeProcessMedia, body)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.TaskID(model.TaskKey(payload.MediaItemID)),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(c.timeout),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			telemetry.Logger.Info("Processing job already in flight",
				zap.Int64("media_item_id", payload.MediaItemID))
			return ErrDuplicateJob
		}
		telemetry.Logger.Error("System Error: Failed to enqueue processing job",
			zap.Int64("media_item_id", payload.MediaItemID), zap.Error(err))
		return fmt.Errorf("enqueue processing job: %w", err)
	}

	telemetry.Logger.Info("Processing job enqueued",
		zap.Int64("media_item_id", payload.MediaItemID),
		zap.String("task_id", model.TaskKey(payload.MediaItemID)))
	return nil
}

// Close closes the queue client connection.
func (c *AsynqClient) Close() error {
	if err := c.client.Close(); err != nil {
		telemetry.Logger.Error("System Error: Failed to close queue client", zap.Error(err))
		return err
	}
	return nil
}
