// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON
// or text logging with configurable log levels, optionally mirrored to a rotating
// log file, and carries request-scoped loggers through context.Context.
package logger
