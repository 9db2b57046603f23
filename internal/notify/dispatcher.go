package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Common errors returned by the Dispatcher
var (
	ErrQueueFull         = errors.New("notification queue is full")
	ErrDispatcherStopped = errors.New("notification dispatcher is stopped")
)

// Publisher sends a notification to the broker.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// DispatcherConfig holds configuration for the dispatcher
type DispatcherConfig struct {
	// WorkerCount determines how many goroutines publish concurrently
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory queue
	QueueSize int

	// PublishTimeout bounds a single Publish call
	PublishTimeout time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount:    2,
		QueueSize:      100,
		PublishTimeout: 5 * time.Second,
	}
}

// Dispatcher queues notifications in memory and publishes them in the background.
// Notify never blocks: a full queue drops the notification.
type Dispatcher struct {
	publisher Publisher
	config    DispatcherConfig
	logger    *slog.Logger

	mu      sync.RWMutex
	queue   chan Notification
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Call Start before Notify.
func NewDispatcher(publisher Publisher, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaults.PublishTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		publisher: publisher,
		config:    config,
		logger:    logger.With(slog.String("component", "notification_dispatcher")),
		queue:     make(chan Notification, config.QueueSize),
	}
}

// Start launches the worker pool. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Notify enqueues n for publishing and returns immediately.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- n:
		return nil
	default:
		d.logger.WarnContext(ctx, "notification dropped, queue full",
			slog.String("notification_id", n.ID.String()),
			slog.String("kind", string(n.Kind)),
			slog.String("task_id", n.TaskID.String()),
			slog.Int("queue_cap", cap(d.queue)))
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(d.queue))
	}
}

// Stop rejects new notifications, lets the workers drain what is already queued and
// waits for them until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification dispatcher did not drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("starting worker", slog.Int("worker_id", id))
	for n := range d.queue {
		d.publish(n, id)
	}
	d.logger.Debug("queue closed, stopping worker", slog.Int("worker_id", id))
}

func (d *Dispatcher) publish(n Notification, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.PublishTimeout)
	defer cancel()

	log := d.logger.With(
		slog.String("notification_id", n.ID.String()),
		slog.String("kind", string(n.Kind)),
		slog.String("task_id", n.TaskID.String()),
		slog.Int("worker_id", workerID),
	)

	if err := d.publisher.Publish(ctx, n); err != nil {
		// Delivery is best effort; the broker owns retries once a message is accepted.
		log.Error("failed to publish notification", slog.String("error", err.Error()))
		return
	}
	log.Debug("notification published")
}
