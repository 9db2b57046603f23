package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/notify"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// worker holds the dependencies of the background process.
type worker struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	redisOpt    asynq.RedisClientOpt
	jobs        *jobs.Client
	broker      *notify.Broker
	publisher   *notify.RabbitPublisher
	dispatcher  *notify.Dispatcher
	consumeCh   *amqp.Channel
	taskService service.TaskService
	resolver    *userResolver
}

// newWorker wires the task service used by the processor, and the publisher
// that carries the completion notifications it emits.
func newWorker(cfg *config.Config, logger *slog.Logger, db *sql.DB) (_ *worker, err error) {
	w := &worker{
		config:   cfg,
		logger:   logger,
		db:       db,
		redisOpt: jobs.RedisOpt(cfg.Redis),
	}
	defer func() {
		if err != nil {
			w.closeInfrastructure()
		}
	}()

	userStore := postgres.NewPostgresUserStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	w.resolver = newUserResolver(userStore)
	w.jobs = jobs.NewClient(w.redisOpt, cfg.Processing, logger)

	w.broker, err = notify.Connect(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	publishCh, err := w.broker.Channel()
	if err != nil {
		return nil, err
	}
	w.publisher, err = notify.NewRabbitPublisher(publishCh, cfg.RabbitMQ.NotificationQueue, logger)
	if err != nil {
		_ = publishCh.Close()
		return nil, err
	}
	w.consumeCh, err = w.broker.Channel()
	if err != nil {
		return nil, err
	}

	w.dispatcher = notify.NewDispatcher(w.publisher, notify.DispatcherConfig{
		WorkerCount:    cfg.Notifications.WorkerCount,
		QueueSize:      cfg.Notifications.QueueSize,
		PublishTimeout: cfg.Notifications.SubmitTimeout(),
	}, logger)
	w.dispatcher.Start()

	w.taskService, err = service.NewTaskService(db, taskStore, userStore, w.jobs, w.dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task service: %w", err)
	}

	return w, nil
}

// deliverer sends email through Mailgun when it is configured and logs
// notifications otherwise.
func (w *worker) deliverer() notify.Deliverer {
	n := w.config.Notifications
	if n.MailgunEnabled() {
		w.logger.Info("delivering notifications through mailgun", "domain", n.MailgunDomain)
		return notify.NewMailgunDeliverer(n.MailgunDomain, n.MailgunAPIKey, n.MailgunSender, w.logger)
	}
	w.logger.Info("mailgun not configured, notifications will be logged")
	return notify.NewLogDeliverer(w.logger)
}

// run starts the job processor and the notification consumer and blocks until
// ctx is done or the consumer fails.
func (w *worker) run(ctx context.Context) error {
	consumer, err := notify.NewConsumer(
		w.consumeCh, w.config.RabbitMQ.NotificationQueue, w.resolver, w.deliverer(), w.logger)
	if err != nil {
		return err
	}

	processor := jobs.NewProcessor(w.redisOpt, w.config.Processing, w.taskService, w.logger)
	if err := processor.Start(); err != nil {
		return fmt.Errorf("failed to start job processor: %w", err)
	}
	w.logger.Info("worker started",
		"queue", w.config.Processing.Queue,
		"concurrency", w.config.Processing.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		w.logger.Info("shutting down job processor")
		processor.Shutdown()
		return nil
	})

	return g.Wait()
}

// cleanup releases every resource held by the worker, including the database.
func (w *worker) cleanup() {
	w.closeInfrastructure()
	if err := w.db.Close(); err != nil {
		w.logger.Error("failed to close database connection", "error", err)
	}
	w.logger.Info("worker stopped")
}

func (w *worker) closeInfrastructure() {
	if w.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), w.config.Server.ShutdownTimeout())
		if err := w.dispatcher.Stop(ctx); err != nil {
			w.logger.Warn("notification dispatcher did not drain", "error", err)
		}
		cancel()
	}
	if w.publisher != nil {
		if err := w.publisher.Close(); err != nil {
			w.logger.Warn("failed to close notification channel", "error", err)
		}
	}
	if w.broker != nil {
		if err := w.broker.Close(); err != nil {
			w.logger.Warn("failed to close rabbitmq connection", "error", err)
		}
	}
	if w.jobs != nil {
		if err := w.jobs.Close(); err != nil {
			w.logger.Warn("failed to close job client", "error", err)
		}
	}
}
