package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// LogError logs an error with its classified type, operation and any extra
// fields.
func LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	logger := FromContext(ctx)
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err, ErrorType(err)).
		WithOperation(operation)

	level := slog.LevelError
	if t := ErrorType(err); t != ErrorTypeInternal {
		level = slog.LevelWarn
	}
	logger.Logger.Log(ctx, level, msg, append([]any{FieldComponent, logger.component}, all.ToSlice()...)...)
}
