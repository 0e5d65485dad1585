package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/db/option"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"not null;index"`
	Body     string
}

func (n *note) SetTenantID(id snowflake.ID) { n.TenantID = id }

func TestStoreScopesByTenant(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&note{}))

	ctx := context.Background()
	store := ProvideStore[note](conn)
	acme := tenantctx.Scope{TenantID: 1, Partition: "acme"}
	globex := tenantctx.Scope{TenantID: 2, Partition: "globex"}

	require.NoError(t, store.Create(ctx, acme, &note{ID: 10, Body: "hello"}))
	require.NoError(t, store.BatchCreate(ctx, globex, []*note{{ID: 20, Body: "other"}, {ID: 21, Body: "more"}}))

	t.Run("find one in scope", func(t *testing.T) {
		got, err := store.FindOne(ctx, acme, option.Equal("id", 10))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.EqualValues(t, 1, got.TenantID)
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		got, err := store.FindOne(ctx, globex, option.Equal("id", 10))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("count", func(t *testing.T) {
		n, err := store.Count(ctx, globex)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("update is scoped", func(t *testing.T) {
		rows, err := store.Update(ctx, globex, 10, map[string]any{"body": "hijack"})
		require.NoError(t, err)
		assert.EqualValues(t, 0, rows)

		rows, err = store.Update(ctx, acme, 10, map[string]any{"body": "changed"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, rows)
	})

	t.Run("invalid scope", func(t *testing.T) {
		_, err := store.Find(ctx, tenantctx.Scope{})
		assert.ErrorIs(t, err, ErrInvalidScope)
		assert.ErrorIs(t, store.Create(ctx, tenantctx.Scope{}, &note{ID: 99}), ErrInvalidScope)
	})
}
