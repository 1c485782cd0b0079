package ownercontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// OwnerContextKey is the request context key for the owner whose shops and
// subscription a request acts on.
type OwnerContextKey struct{}

// WithOwnerID stores the owner ID in the context.
func WithOwnerID(ctx context.Context, ownerID snowflake.ID) context.Context {
	return context.WithValue(ctx, OwnerContextKey{}, ownerID)
}

// OwnerIDFromContext returns the owner ID from context, if set.
func OwnerIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(OwnerContextKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}
