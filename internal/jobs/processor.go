package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Lifecycle records the progress of a processing job on its task.
type Lifecycle interface {
	// BeginProcessing moves the task referenced by jobID to in_progress.
	BeginProcessing(ctx context.Context, jobID string) (*domain.Task, error)

	// FinishProcessing completes the task, or fails it when failure is non-nil.
	FinishProcessing(ctx context.Context, jobID string, failure error) (*domain.Task, error)
}

// WorkFunc performs the processing for one job.
type WorkFunc func(ctx context.Context, payload ProcessPayload) error

// Processor executes processing jobs.
type Processor struct {
	server    *asynq.Server
	lifecycle Lifecycle
	work      WorkFunc
	logger    *slog.Logger
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithWork replaces the simulated workload.
func WithWork(work WorkFunc) ProcessorOption {
	return func(p *Processor) {
		p.work = work
	}
}

// NewProcessor creates a Processor consuming cfg.Queue.
func NewProcessor(
	redisOpt asynq.RedisConnOpt,
	cfg config.ProcessingConfig,
	lifecycle Lifecycle,
	logger *slog.Logger,
	opts ...ProcessorOption,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "processor"))

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "default"
	}

	p := &Processor{
		lifecycle: lifecycle,
		work:      Simulate(cfg.SimulatedDuration()),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.server = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      asynqLogger{logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.WarnContext(ctx, "processing attempt failed",
				slog.String("type", t.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.String("error", err.Error()))
		}),
	})
	return p
}

// Simulate returns a WorkFunc that sleeps for d or until ctx is done.
func Simulate(d time.Duration) WorkFunc {
	return func(ctx context.Context, _ ProcessPayload) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// Handler returns the mux serving TypeProcessTask wrapped in lifecycle logging.
func (p *Processor) Handler() asynq.Handler {
	mux := asynq.NewServeMux()
	mux.Use(p.loggingMiddleware)
	mux.HandleFunc(TypeProcessTask, p.HandleProcessTask)
	return mux
}

// Start begins processing in the background.
func (p *Processor) Start() error {
	return p.server.Start(p.Handler())
}

// Shutdown stops fetching new jobs and waits for active ones.
func (p *Processor) Shutdown() {
	p.server.Shutdown()
}

func (p *Processor) loggingMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		id, _ := asynq.GetTaskID(ctx)
		log := p.logger.With(slog.String("job_id", id), slog.String("type", t.Type()))

		start := time.Now()
		log.InfoContext(ctx, "job started")

		err := next.ProcessTask(ctx, t)
		if err != nil {
			log.ErrorContext(ctx, "job failed",
				slog.Duration("duration", time.Since(start)),
				slog.String("error", err.Error()))
			return err
		}

		log.InfoContext(ctx, "job finished", slog.Duration("duration", time.Since(start)))
		return nil
	})
}

// HandleProcessTask is the asynq handler for TypeProcessTask.
func (p *Processor) HandleProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid processing payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID, ok := asynq.GetTaskID(ctx)
	if !ok {
		return fmt.Errorf("missing job id: %w", asynq.SkipRetry)
	}
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	return p.process(ctx, jobID, retried, maxRetry, payload)
}

// process runs one attempt. The task is marked failed only on the last attempt;
// earlier failures leave it in progress for the retry.
func (p *Processor) process(ctx context.Context, jobID string, retried, maxRetry int, payload ProcessPayload) error {
	log := p.logger.With(slog.String("job_id", jobID), slog.String("task_id", payload.TaskID.String()))
	lastAttempt := retried >= maxRetry

	task, err := p.lifecycle.BeginProcessing(ctx, jobID)
	if err != nil {
		// On the first attempt the creating transaction may not have committed
		// yet. After that a missing task means it was rolled back or deleted.
		if retried > 0 && errors.Is(err, store.ErrNotFound) {
			log.WarnContext(ctx, "no task references this job, dropping it")
			return fmt.Errorf("no task for job %s: %v: %w", jobID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to begin processing: %w", err)
	}
	if task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed {
		log.InfoContext(ctx, "task already settled, skipping", slog.String("status", string(task.Status)))
		return nil
	}

	workErr := p.work(ctx, payload)
	if workErr != nil && !lastAttempt {
		return workErr
	}

	// Record the outcome even if the attempt was cancelled.
	finishCtx := context.WithoutCancel(ctx)
	if _, err := p.lifecycle.FinishProcessing(finishCtx, jobID, workErr); err != nil {
		return errors.Join(workErr, fmt.Errorf("failed to record processing outcome: %w", err))
	}
	return workErr
}
