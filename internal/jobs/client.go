package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskflow-api/internal/config"
)

// TypeProcessTask is the asynq task type for background task processing.
const TypeProcessTask = "task:process"

// ProcessPayload is the JSON payload of a TypeProcessTask job.
type ProcessPayload struct {
	TaskID uuid.UUID      `json:"task_id"`
	Params map[string]any `json:"params,omitempty"`
}

// RedisOpt converts the Redis settings into asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Client enqueues processing jobs.
type Client struct {
	client   *asynq.Client
	queue    string
	maxRetry int
	logger   *slog.Logger
}

// NewClient creates a Client that enqueues onto cfg.Queue.
func NewClient(redisOpt asynq.RedisConnOpt, cfg config.ProcessingConfig, logger *slog.Logger) *Client {
	queue := cfg.Queue
	if queue == "" {
		queue = "default"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client:   asynq.NewClient(redisOpt),
		queue:    queue,
		maxRetry: cfg.MaxRetry,
		logger:   logger.With(slog.String("component", "processing_client")),
	}
}

// SubmitProcessing enqueues a processing job for taskID and returns the job ID.
func (c *Client) SubmitProcessing(ctx context.Context, taskID uuid.UUID, params map[string]any) (string, error) {
	payload, err := json.Marshal(ProcessPayload{TaskID: taskID, Params: params})
	if err != nil {
		return "", fmt.Errorf("failed to encode processing payload: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TypeProcessTask, payload),
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue processing for task %s: %w", taskID, err)
	}

	c.logger.InfoContext(ctx, "processing job enqueued",
		slog.String("task_id", taskID.String()),
		slog.String("job_id", info.ID),
		slog.String("queue", info.Queue))
	return info.ID, nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
