package config

import "time"

// Config holds all application configuration.
// It is built once at startup by Load and passed by value or pointer to the
// constructors that need it; nothing reads configuration from globals.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"        validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"      validate:"required"`
	Auth          AuthConfig          `mapstructure:"auth"          validate:"required"`
	Redis         RedisConfig         `mapstructure:"redis"         validate:"required"`
	RabbitMQ      RabbitMQConfig      `mapstructure:"rabbitmq"      validate:"required"`
	Processing    ProcessingConfig    `mapstructure:"processing"    validate:"required"`
	Notifications NotificationsConfig `mapstructure:"notifications" validate:"required"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	LogFormat              string `mapstructure:"log_format"               validate:"required,oneof=json text"`
	LogFile                string `mapstructure:"log_file"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ShutdownTimeout is the grace period given to in-flight requests on shutdown.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url"                       validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"            validate:"gt=0"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"            validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
}

// ConnMaxLifetime is the maximum age of a pooled connection.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
}

// RedisConfig locates the Redis instance shared by the job queue and the rate limiter.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       validate:"gte=0"`
}

// RabbitMQConfig locates the broker carrying task notifications.
type RabbitMQConfig struct {
	URL               string `mapstructure:"url"                validate:"required,url"`
	NotificationQueue string `mapstructure:"notification_queue" validate:"required"`
}

// ProcessingConfig controls background task processing.
type ProcessingConfig struct {
	Queue               string `mapstructure:"queue"                 validate:"required"`
	Concurrency         int    `mapstructure:"concurrency"           validate:"gt=0"`
	MaxRetry            int    `mapstructure:"max_retry"             validate:"gte=0"`
	SimulatedDurationMS int    `mapstructure:"simulated_duration_ms" validate:"gte=0"`
}

// SimulatedDuration is how long the processor pretends to work on each task.
func (c ProcessingConfig) SimulatedDuration() time.Duration {
	return time.Duration(c.SimulatedDurationMS) * time.Millisecond
}

// NotificationsConfig controls the in-process notification dispatcher and delivery.
type NotificationsConfig struct {
	QueueSize       int    `mapstructure:"queue_size"        validate:"gt=0"`
	WorkerCount     int    `mapstructure:"worker_count"      validate:"gt=0"`
	SubmitTimeoutMS int    `mapstructure:"submit_timeout_ms" validate:"gt=0"`
	MailgunDomain   string `mapstructure:"mailgun_domain"`
	MailgunAPIKey   string `mapstructure:"mailgun_api_key"`
	MailgunSender   string `mapstructure:"mailgun_sender"`
}

// SubmitTimeout bounds a single publish to the broker.
func (c NotificationsConfig) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutMS) * time.Millisecond
}

// MailgunEnabled reports whether every Mailgun setting is present.
func (c NotificationsConfig) MailgunEnabled() bool {
	return c.MailgunDomain != "" && c.MailgunAPIKey != "" && c.MailgunSender != ""
}

// RateLimitConfig bounds requests per client on the authentication endpoints.
// Requests of zero disables limiting.
type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"       validate:"gte=0"`
	WindowSeconds int `mapstructure:"window_seconds" validate:"gt=0"`
}

// Window is the length of one rate-limit window.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}
