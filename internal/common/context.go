package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyBatchID   contextKey = "batch_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithBatchID tags the context with the batch a file belongs to.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, batchID)
}

// BatchIDFromContext extracts the batch ID from context
func BatchIDFromContext(ctx context.Context) string {
	if batchID, ok := ctx.Value(ContextKeyBatchID).(string); ok {
		return batchID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
