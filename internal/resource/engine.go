package resource

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/pkg/db/option"
	"github.com/smallbiznis/tenantdesk/pkg/db/pagination"
	"github.com/smallbiznis/tenantdesk/pkg/repository"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListRequest carries the list query parameters.
type ListRequest struct {
	pagination.Pagination
	Filter string `form:"filter"`
	Equal  string `form:"equal"`
	Query  string `form:"q"`
}

// DeleteResult reports the removed entity. AlreadyRemoved is set when the
// row had been soft-deleted before this call.
type DeleteResult[T any] struct {
	Item           *T
	AlreadyRemoved bool
}

// Engine implements tenant-scoped CRUD, listing, filtering and search for
// any entity embedding Base.
type Engine[T any, PT Model[T]] struct {
	desc  Descriptor
	db    *gorm.DB
	repo  repository.Repository[T]
	genID *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

type EngineParams struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

func NewEngine[T any, PT Model[T]](desc Descriptor, p EngineParams) *Engine[T, PT] {
	return &Engine[T, PT]{
		desc:  desc,
		db:    p.DB,
		repo:  repository.ProvideStore[T](p.DB),
		genID: p.GenID,
		clock: p.Clock,
		log:   p.Log.Named(desc.Name + ".engine"),
	}
}

// Provide returns an fx constructor for the engine of desc.
func Provide[T any, PT Model[T]](desc Descriptor) func(EngineParams) *Engine[T, PT] {
	return func(p EngineParams) *Engine[T, PT] {
		return NewEngine[T, PT](desc, p)
	}
}

// WithTx returns an engine whose storage calls run inside tx.
func (e *Engine[T, PT]) WithTx(tx *gorm.DB) *Engine[T, PT] {
	clone := *e
	clone.db = tx
	clone.repo = e.repo.WithTrx(tx)
	return &clone
}

func (e *Engine[T, PT]) DB() *gorm.DB { return e.db }

func (e *Engine[T, PT]) Descriptor() Descriptor { return e.desc }

func (e *Engine[T, PT]) GenID() snowflake.ID { return e.genID.Generate() }

func (e *Engine[T, PT]) Clock() clock.Clock { return e.clock }

// New returns a zero entity with the create-time defaults applied, ready
// for request binding.
func (e *Engine[T, PT]) New() *T {
	item := new(T)
	PT(item).GetBase().Enabled = true
	return item
}

func (e *Engine[T, PT]) Create(ctx context.Context, item *T) (*T, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := PT(item).Validate(); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	base := PT(item).GetBase()
	if base.ID == 0 {
		base.ID = e.genID.Generate()
	}
	base.Removed = false
	base.CreatedBy = nil
	if e.desc.HasOwner {
		if actor, ok := tenantctx.ActorID(ctx); ok {
			base.CreatedBy = &actor
		}
	}
	base.Created = now
	base.Updated = now

	if err := e.repo.Create(ctx, scope, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine[T, PT]) Read(ctx context.Context, id snowflake.ID) (*T, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return e.read(ctx, scope, id, true)
}

func (e *Engine[T, PT]) read(ctx context.Context, scope tenantctx.Scope, id snowflake.ID, preload bool) (*T, error) {
	opts := []option.QueryOption{option.Equal("id", id), option.Equal("removed", false)}
	if preload {
		opts = append(opts, e.preloads()...)
	}
	item, err := e.repo.FindOne(ctx, scope, opts...)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// Update applies a partial payload keyed by JSON field name.
func (e *Engine[T, PT]) Update(ctx context.Context, id snowflake.ID, payload map[string]any) (*T, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := e.read(ctx, scope, id, false); err != nil {
		return nil, err
	}

	columns, err := e.desc.coerceColumns(payload)
	if err != nil {
		return nil, err
	}
	columns["updated"] = e.clock.Now()

	affected, err := e.repo.Update(ctx, scope, id, columns, option.Equal("removed", false))
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return e.read(ctx, scope, id, true)
}

// SoftDelete marks the row removed. Deleting an already removed row is not
// an error; the stored row is returned with AlreadyRemoved set.
func (e *Engine[T, PT]) SoftDelete(ctx context.Context, id snowflake.ID) (DeleteResult[T], error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return DeleteResult[T]{}, err
	}

	item, err := e.repo.FindOne(ctx, scope, option.Equal("id", id))
	if err != nil {
		return DeleteResult[T]{}, err
	}
	if item == nil {
		return DeleteResult[T]{}, ErrNotFound
	}
	base := PT(item).GetBase()
	if base.Removed {
		return DeleteResult[T]{Item: item, AlreadyRemoved: true}, nil
	}

	now := e.clock.Now()
	if _, err := e.repo.Update(ctx, scope, id, map[string]any{"removed": true, "updated": now}); err != nil {
		return DeleteResult[T]{}, err
	}
	base.Removed = true
	base.Updated = now
	return DeleteResult[T]{Item: item}, nil
}

// List returns one page of live rows, newest first.
func (e *Engine[T, PT]) List(ctx context.Context, req ListRequest) ([]*T, pagination.PageInfo, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	conds, err := e.conditions(req.Filter, req.Equal, req.Query)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	total, err := e.repo.Count(ctx, scope, conds...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	page := req.Pagination.Normalize()
	opts := append(conds, e.order(), option.ApplyPagination(page))
	opts = append(opts, e.preloads()...)
	items, err := e.repo.Find(ctx, scope, opts...)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return nonNil(items), pagination.Build(page, total), nil
}

func (e *Engine[T, PT]) ListAll(ctx context.Context) ([]*T, error) {
	return e.findAll(ctx, "", "", "")
}

// Filter returns every live row whose field equals value. The field must be
// in the descriptor's filterable allow-list.
func (e *Engine[T, PT]) Filter(ctx context.Context, field, value string) ([]*T, error) {
	if strings.TrimSpace(field) == "" {
		return nil, validation.New("filter", "required", "filter is required")
	}
	return e.findAll(ctx, field, value, "")
}

// Search matches q case-insensitively against the search fields. An empty
// q returns the same rows as ListAll.
func (e *Engine[T, PT]) Search(ctx context.Context, q string) ([]*T, error) {
	return e.findAll(ctx, "", "", q)
}

func (e *Engine[T, PT]) findAll(ctx context.Context, field, value, q string) ([]*T, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	conds, err := e.conditions(field, value, q)
	if err != nil {
		return nil, err
	}
	opts := append(conds, e.order())
	opts = append(opts, e.preloads()...)
	items, err := e.repo.Find(ctx, scope, opts...)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func (e *Engine[T, PT]) conditions(field, value, q string) ([]option.QueryOption, error) {
	conds := []option.QueryOption{option.Equal("removed", false)}

	if field = strings.TrimSpace(field); field != "" {
		f, ok := e.desc.filterable(field)
		if !ok {
			return nil, validation.New("filter", "not_filterable", field+" cannot be used as a filter on "+e.desc.Name)
		}
		v, err := coerceQuery(f, value)
		if err != nil {
			return nil, validation.New("equal", err.Error(), fieldMessage("equal", f.Kind, err.Error()))
		}
		conds = append(conds, option.Equal(f.Column, v))
	}
	if strings.TrimSpace(q) != "" {
		conds = append(conds, option.Search(e.desc.SearchFields, q))
	}
	return conds, nil
}

func (e *Engine[T, PT]) order() option.QueryOption {
	return option.WithSortBy(option.WithQuerySortBy("created", "desc", nil))
}

func (e *Engine[T, PT]) preloads() []option.QueryOption {
	opts := make([]option.QueryOption, 0, len(e.desc.Preloads))
	for _, name := range e.desc.Preloads {
		opts = append(opts, option.Preload(name, func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id asc")
		}))
	}
	return opts
}

func nonNil[T any](items []*T) []*T {
	if items == nil {
		return []*T{}
	}
	return items
}
