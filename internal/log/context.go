package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext returns a copy of ctx carrying logger.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides domain-specific structured logging methods
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogMaterialization logs the outcome of one materialization run.
func (sl *StructuredLogger) LogMaterialization(ctx context.Context, asOf string, created int, err error) {
	fields := NewFields().
		WithOperation(OpMaterialize).
		WithAsOf(asOf).
		WithCount(created).
		WithError(err)

	logger := sl.logger.WithComponent(ComponentRecurring)
	if err != nil {
		logger.ErrorContext(ctx, "Recurring materialization failed", fields.ToSlice()...)
		return
	}
	logger.InfoContext(ctx, "Recurring materialization complete", fields.ToSlice()...)
}

// LogSnapshot logs a built dashboard snapshot.
func (sl *StructuredLogger) LogSnapshot(ctx context.Context, month string, score int, label string, refreshed bool) {
	fields := NewFields().
		WithOperation(OpAggregate).
		WithMonth(month)
	fields[FieldHealthScore] = score
	fields[FieldHealthLabel] = label
	fields[FieldRefreshed] = refreshed

	sl.logger.WithComponent(ComponentDashboard).InfoContext(ctx, "Dashboard snapshot built", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, allFields.ToSlice()...)
}
