package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	sourceKeyKey contextKey = "source_key"
	runIDKey     contextKey = "run_id"
	loggerKey    contextKey = "logger"
)

// WithSourceKey adds the data source key to context
func WithSourceKey(ctx context.Context, sourceKey string) context.Context {
	return context.WithValue(ctx, sourceKeyKey, sourceKey)
}

// WithRunID adds a job run ID to context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithLogger adds logger to context
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts logger from context with all accumulated fields
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}

	l := Logger
	if l == nil {
		// Fallback to a basic logger if not initialized
		l, _ = zap.NewProduction()
	}

	var fields []zap.Field

	if sourceKey, ok := ctx.Value(sourceKeyKey).(string); ok && sourceKey != "" {
		fields = append(fields, zap.String("source_key", sourceKey))
	}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}

	if len(fields) > 0 {
		l = l.With(fields...)
	}

	return l
}

// WithSource creates a logger with the data source key attached
func WithSource(logger *zap.Logger, sourceKey string) *zap.Logger {
	if logger == nil {
		logger = Logger
	}
	return logger.With(zap.String("source_key", sourceKey))
}

// WithRun creates a logger with a job run ID attached
func WithRun(logger *zap.Logger, runID string) *zap.Logger {
	if logger == nil {
		logger = Logger
	}
	return logger.With(zap.String("run_id", runID))
}

// SetLogLevel dynamically changes the log level by name
func SetLogLevel(level string) error {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	SetLevel(zapLevel)
	return nil
}

// GetLogLevel returns the current log level
func GetLogLevel() string {
	return GetLevel().String()
}
