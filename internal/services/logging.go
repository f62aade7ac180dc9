package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service   string
	Component string
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// Logger returns the underlying logger with service attributes attached
func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}

// classify maps an operation error to a log level and status label
func classify(err error) (slog.Level, string) {
	switch {
	case err == nil:
		return slog.LevelInfo, "success"
	case IsValidation(err):
		return slog.LevelWarn, "validation_error"
	case IsConflict(err):
		return slog.LevelWarn, "conflict"
	case IsBusinessRule(err):
		return slog.LevelWarn, "business_rule"
	case IsUnauthorized(err):
		return slog.LevelWarn, "unauthorized"
	case IsForbidden(err):
		return slog.LevelWarn, "forbidden"
	case IsNotFound(err):
		return slog.LevelInfo, "not_found"
	}
	return slog.LevelError, "error"
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, subjectID, resourceID, resourceType string, duration time.Duration, err error, extra ...slog.Attr) {
	level, status := classify(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}
	if subjectID != "" {
		attrs = append(attrs, slog.String("subject_id", subjectID))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErr ValidationErrors
		var businessErr *BusinessRuleError
		if errors.As(err, &validationErr) {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		} else if errors.As(err, &businessErr) {
			attrs = append(attrs, slog.String("business_rule", businessErr.Rule))
		}
	}

	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	attrs = append(attrs, extra...)

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

type contextKey string

const requestIDContextKey contextKey = "request_id"

// WithRequestID attaches a request ID that operation logs pick up
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// ===== OPERATION SCOPE =====

// ContextualLogger wraps one operation with automatic timing and logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	subjectID string
	startTime time.Time
	ctx       context.Context
	attrs     []slog.Attr
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, subjectID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		subjectID: subjectID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

// With adds attributes to the final result log line
func (cl *ContextualLogger) With(attrs ...slog.Attr) *ContextualLogger {
	cl.attrs = append(cl.attrs, attrs...)
	return cl
}

func (cl *ContextualLogger) LogResult(resourceID, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.subjectID, resourceID, resourceType,
		time.Since(cl.startTime), err, cl.attrs...)
}
