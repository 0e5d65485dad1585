package tenantctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("missing scope", func(t *testing.T) {
		_, err := FromContext(context.Background())
		assert.ErrorIs(t, err, ErrMissingScope)
	})

	t.Run("invalid scope", func(t *testing.T) {
		ctx := WithScope(context.Background(), Scope{TenantID: 1})
		_, err := FromContext(ctx)
		assert.ErrorIs(t, err, ErrMissingScope)
	})

	t.Run("bound scope", func(t *testing.T) {
		ctx := WithScope(context.Background(), Scope{TenantID: 42, Partition: "acme"})
		scope, err := FromContext(ctx)
		assert.NoError(t, err)
		assert.Equal(t, "acme", scope.Partition)

		id, ok := TenantID(ctx)
		assert.True(t, ok)
		assert.EqualValues(t, 42, id)
	})
}

func TestActorID(t *testing.T) {
	_, ok := ActorID(context.Background())
	assert.False(t, ok)

	ctx := WithActorID(context.Background(), 7)
	id, ok := ActorID(ctx)
	assert.True(t, ok)
	assert.EqualValues(t, 7, id)
}
