package logger

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// RequestIDField is the log field name for request ids in both loggers.
	RequestIDField = "request_id"
)

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
