package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/notify"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// application holds the shared dependencies of the API server so they can be
// released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Infrastructure
	redis      *redis.Client
	broker     *notify.Broker
	publisher  *notify.RabbitPublisher
	dispatcher *notify.Dispatcher
	jobs       *jobs.Client

	// Stores
	userStore store.UserStore
	taskStore store.TaskStore

	// Services
	jwtService  auth.JWTService
	userService service.UserService
	taskService service.TaskService
}

// newApplication wires the stores, services and background infrastructure on top
// of an established database connection. Whatever was opened is released if a
// later step fails.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (_ *application, err error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}
	defer func() {
		if err != nil {
			app.closeInfrastructure()
		}
	}()

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	app.jobs = jobs.NewClient(jobs.RedisOpt(cfg.Redis), cfg.Processing, logger)

	app.broker, err = notify.Connect(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	ch, err := app.broker.Channel()
	if err != nil {
		return nil, err
	}
	app.publisher, err = notify.NewRabbitPublisher(ch, cfg.RabbitMQ.NotificationQueue, logger)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	app.dispatcher = notify.NewDispatcher(app.publisher, notify.DispatcherConfig{
		WorkerCount:    cfg.Notifications.WorkerCount,
		QueueSize:      cfg.Notifications.QueueSize,
		PublishTimeout: cfg.Notifications.SubmitTimeout(),
	}, logger)
	app.dispatcher.Start()

	app.userService, err = service.NewUserService(
		db, app.userStore, app.taskStore, auth.NewBcryptHasher(cfg.Auth.BcryptCost), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user service: %w", err)
	}

	app.taskService, err = service.NewTaskService(
		db, app.taskStore, app.userStore, app.jobs, app.dispatcher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task service: %w", err)
	}

	return app, nil
}

// cleanup releases every resource held by the application, including the database.
func (app *application) cleanup() {
	app.logger.Info("cleaning up resources")
	app.closeInfrastructure()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
	app.logger.Info("cleanup completed")
}

// closeInfrastructure drains the notification queue and closes the broker, the
// job client and Redis. The database is left to the caller.
func (app *application) closeInfrastructure() {
	if app.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
		if err := app.dispatcher.Stop(ctx); err != nil {
			app.logger.Warn("notification dispatcher did not drain", "error", err)
		}
		cancel()
	}
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Warn("failed to close notification channel", "error", err)
		}
	}
	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			app.logger.Warn("failed to close rabbitmq connection", "error", err)
		}
	}
	if app.jobs != nil {
		if err := app.jobs.Close(); err != nil {
			app.logger.Warn("failed to close job client", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("failed to close redis client", "error", err)
		}
	}
}
