// Package context carries request-scoped correlation values used by logs,
// traces and audit entries.
package context

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorTypeKey ctxKey = "actor_type"
	actorIDKey   ctxKey = "actor_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithActor records who is acting on the request, e.g. ("user", "1234").
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, actorTypeKey, strings.TrimSpace(actorType))
	return context.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, actorTypeKey), stringValue(ctx, actorIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
