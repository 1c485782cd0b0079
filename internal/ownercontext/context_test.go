package ownercontext

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestOwnerIDFromContext(t *testing.T) {
	id, ok := OwnerIDFromContext(WithOwnerID(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)

	_, ok = OwnerIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = OwnerIDFromContext(WithOwnerID(context.Background(), 0))
	assert.False(t, ok)

	id, ok = OwnerIDFromContext(context.WithValue(context.Background(), OwnerContextKey{}, " 7 "))
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(7), id)
}
