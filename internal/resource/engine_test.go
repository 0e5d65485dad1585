package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/db/pagination"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type widget struct {
	Base
	Name  string          `gorm:"type:varchar(100);not null" json:"name"`
	Email string          `gorm:"type:varchar(100)" json:"email"`
	Price decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"price"`
	Qty   int64           `json:"qty"`
}

func (w *widget) Validate() error {
	var v validation.Collector
	v.Required("name", w.Name)
	return v.Err()
}

var widgetDescriptor = Descriptor{
	Name:         "widget",
	SearchFields: []string{"name", "email"},
	Filterable:   []string{"name", "enabled", "qty"},
	Fields: map[string]Field{
		"name":    {Kind: KindString, Required: true},
		"email":   {Kind: KindEmail},
		"price":   {Kind: KindDecimal, Required: true},
		"qty":     {Kind: KindInt},
		"enabled": {Kind: KindBool},
	},
	HasOwner: true,
}

var (
	tenantA = tenantctx.Scope{TenantID: 100, Partition: "alpha"}
	tenantB = tenantctx.Scope{TenantID: 200, Partition: "beta"}
)

func newWidgetEngine(t *testing.T) (*Engine[widget, *widget], *clock.FakeClock) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	return NewEngine[widget, *widget](widgetDescriptor, EngineParams{
		DB:    conn,
		GenID: node,
		Clock: fc,
		Log:   zap.NewNop(),
	}), fc
}

func createWidget(t *testing.T, e *Engine[widget, *widget], ctx context.Context, name string) *widget {
	t.Helper()
	w := e.New()
	w.Name = name
	w.Price = decimal.NewFromInt(10)
	created, err := e.Create(ctx, w)
	require.NoError(t, err)
	return created
}

func TestCreateStampsDefaults(t *testing.T) {
	e, _ := newWidgetEngine(t)
	ctx := tenantctx.WithActorID(tenantctx.WithScope(context.Background(), tenantA), snowflake.ID(7))

	w := createWidget(t, e, ctx, "bolt")
	assert.NotZero(t, w.ID)
	assert.Equal(t, tenantA.TenantID, w.TenantID)
	assert.True(t, w.Enabled)
	assert.False(t, w.Removed)
	require.NotNil(t, w.CreatedBy)
	assert.Equal(t, snowflake.ID(7), *w.CreatedBy)

	_, err := e.Create(ctx, e.New())
	errs, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "name", errs[0].Field)

	_, err = e.Create(context.Background(), e.New())
	assert.ErrorIs(t, err, tenantctx.ErrMissingScope)
}

func TestListPaginates(t *testing.T) {
	e, _ := newWidgetEngine(t)
	ctx := tenantctx.WithScope(context.Background(), tenantA)
	for i := 0; i < 23; i++ {
		createWidget(t, e, ctx, fmt.Sprintf("w%02d", i))
	}

	items, info, err := e.List(ctx, ListRequest{Pagination: pagination.Pagination{Page: 3, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, info.Page)
	assert.Equal(t, 3, info.Pages)
	assert.Equal(t, int64(23), info.Total)
	require.NotNil(t, info.Prev)
	assert.Equal(t, 2, *info.Prev)
	assert.Nil(t, info.Next)

	first, info, err := e.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Len(t, first, 10)
	assert.Nil(t, info.Prev)
	require.NotNil(t, info.Next)
	assert.Equal(t, "w22", first[0].Name)
}

func TestTenantIsolation(t *testing.T) {
	e, _ := newWidgetEngine(t)
	ctxA := tenantctx.WithScope(context.Background(), tenantA)
	ctxB := tenantctx.WithScope(context.Background(), tenantB)

	w := createWidget(t, e, ctxA, "secret")

	_, err := e.Read(ctxB, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := e.ListAll(ctxB)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = e.Update(ctxB, w.ID, map[string]any{"name": "stolen"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.SoftDelete(ctxB, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := e.Read(ctxA, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Name)
}

func TestSoftDeleteIsIdempotent(t *testing.T) {
	e, _ := newWidgetEngine(t)
	ctx := tenantctx.WithScope(context.Background(), tenantA)
	w := createWidget(t, e, ctx, "gear")

	res, err := e.SoftDelete(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyRemoved)
	assert.True(t, res.Item.Removed)

	res, err = e.SoftDelete(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyRemoved)
	assert.True(t, res.Item.Removed)

	_, err = e.Read(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	items, info, err := e.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, info.Total)

	_, err = e.SoftDelete(ctx, snowflake.ID(12345))
	assert.ErrorIs(t, err, ErrNotFound)
}

func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	require.NoError(t, dec.Decode(&payload))
	return payload
}

func TestUpdateCoercesFields(t *testing.T) {
	e, fc := newWidgetEngine(t)
	ctx := tenantctx.WithScope(context.Background(), tenantA)
	w := createWidget(t, e, ctx, "nut")
	fc.Advance(time.Hour)

	updated, err := e.Update(ctx, w.ID, decodePayload(t, `{"name":"washer","price":"12.50","qty":3,"enabled":false}`))
	require.NoError(t, err)
	assert.Equal(t, "washer", updated.Name)
	assert.True(t, decimal.RequireFromString("12.5").Equal(updated.Price))
	assert.Equal(t, int64(3), updated.Qty)
	assert.False(t, updated.Enabled)
	assert.True(t, updated.Updated.After(updated.Created))
}

func TestUpdateRejectsBadPayload(t *testing.T) {
	e, _ := newWidgetEngine(t)
	ctx := tenantctx.WithScope(context.Background(), tenantA)
	w := createWidget(t, e, ctx, "nut")

	cases := map[string]struct {
		payload string
		field   string
		code    string
	}{
		"type mismatch": {`{"qty":"three"}`, "qty", "type_mismatch"},
		"bool mismatch": {`{"enabled":"yes"}`, "enabled", "type_mismatch"},
		"unknown field": {`{"color":"red"}`, "color", "unknown_field"},
		"read only":     {`{"removed":true}`, "removed", "read_only"},
		"required":      {`{"name":""}`, "name", "required"},
		"bad email":     {`{"email":"nope"}`, "email", "invalid_format"},
		"bad decimal":   {`{"price":"abc"}`, "price", "invalid_format"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.Update(ctx, w.ID, decodePayload(t, tc.payload))
			errs, ok := validation.As(err)
			require.True(t, ok, "expected validation error, got %v", err)
			require.Len(t, errs, 1)
			assert.Equal(t, tc.field, errs[0].Field)
			assert.Equal(t, tc.code, errs[0].Code)
		})
	}

	got, err := e.Read(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "nut", got.Name)

	_, err = e.Update(ctx, snowflake.ID(999), map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilterAndSearch(t *testing.T) {
	e, _ := newWidgetEngine(t)
	ctx := tenantctx.WithScope(context.Background(), tenantA)
	createWidget(t, e, ctx, "Blue Bolt")
	createWidget(t, e, ctx, "Red Bolt")
	disabled := createWidget(t, e, ctx, "Green Nut")
	_, err := e.Update(ctx, disabled.ID, map[string]any{"enabled": false})
	require.NoError(t, err)

	found, err := e.Search(ctx, "BOLT")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	all, err := e.ListAll(ctx)
	require.NoError(t, err)
	empty, err := e.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, len(all), len(empty))

	t.Run("wildcards match literally", func(t *testing.T) {
		createWidget(t, e, ctx, "100% Steel")
		createWidget(t, e, ctx, "snake_case!")

		for q, want := range map[string]string{
			"%":   "100% Steel",
			"_":   "snake_case!",
			"e_c": "snake_case!",
			"!":   "snake_case!",
		} {
			hits, err := e.Search(ctx, q)
			require.NoError(t, err)
			require.Len(t, hits, 1, "query %q", q)
			assert.Equal(t, want, hits[0].Name)
		}

		hits, err := e.Search(ctx, "b_lt")
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	filtered, err := e.Filter(ctx, "enabled", "false")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Green Nut", filtered[0].Name)

	_, err = e.Filter(ctx, "email", "x")
	errs, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, "not_filterable", errs[0].Code)

	_, err = e.Filter(ctx, "qty", "many")
	_, ok = validation.As(err)
	assert.True(t, ok)

	items, info, err := e.List(ctx, ListRequest{Query: "bolt", Filter: "name", Equal: "Red Bolt"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), info.Total)
}
