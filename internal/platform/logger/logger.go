package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/taskflow-api/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation limits used when ServerConfig.LogFile is set.
const (
	logFileMaxSizeMB  = 50
	logFileMaxBackups = 5
	logFileMaxAgeDays = 28
)

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured logger with the configured
// level and format and sets it as the default logger for the application.
//
// When cfg.LogFile is set, records are written to stdout and to a size-rotated file.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
			Compress:   true,
		})
	}

	logger := slog.New(NewHandler(out, cfg))

	// This allows using the slog package functions directly (slog.Info, slog.Error, etc.)
	slog.SetDefault(logger)

	return logger, nil
}

// NewHandler builds the handler Setup uses, writing to out.
func NewHandler(out io.Writer, cfg config.ServerConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}

	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

// ParseLevel maps a configured level name (case-insensitive) to a slog.Level.
// Unknown names resolve to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
