package logger

import (
	"context"

	"go.uber.org/zap"
)

// Context keys
type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
)

// WithContext returns a logger with fields from context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		return l.With(zap.String("request_id", requestID))
	}

	return l
}

// FromContext extracts logger from context, returns default logger if not found
func FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return L()
	}

	if logger, ok := ctx.Value(loggerKey).(*Logger); ok && logger != nil {
		return logger.WithContext(ctx)
	}

	return L().WithContext(ctx)
}

// ToContext adds logger to context
func ToContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
