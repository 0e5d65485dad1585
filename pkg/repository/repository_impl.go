package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/pkg/db/option"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidScope = errors.New("invalid_scope")

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (r *store[T]) Find(ctx context.Context, scope tenantctx.Scope, opts ...option.QueryOption) ([]*T, error) {
	stmt, err := r.buildQuery(ctx, scope, opts...)
	if err != nil {
		return nil, err
	}
	var result []*T
	err = stmt.Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, scope tenantctx.Scope, opts ...option.QueryOption) (*T, error) {
	stmt, err := r.buildQuery(ctx, scope, opts...)
	if err != nil {
		return nil, err
	}
	var result T
	err = stmt.Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Count(ctx context.Context, scope tenantctx.Scope, opts ...option.QueryOption) (int64, error) {
	stmt, err := r.buildQuery(ctx, scope, opts...)
	if err != nil {
		return 0, err
	}
	var count int64
	err = stmt.Count(&count).Error
	return count, err
}

func (r *store[T]) Create(ctx context.Context, scope tenantctx.Scope, resource *T) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	stamp(scope, resource)
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(resource).Error
}

func (r *store[T]) BatchCreate(ctx context.Context, scope tenantctx.Scope, resources []*T) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	if len(resources) == 0 {
		return nil
	}
	for _, resource := range resources {
		stamp(scope, resource)
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(resources).Error
}

func (r *store[T]) Update(ctx context.Context, scope tenantctx.Scope, id snowflake.ID, fields map[string]any, opts ...option.QueryOption) (int64, error) {
	stmt, err := r.buildQuery(ctx, scope, opts...)
	if err != nil {
		return 0, err
	}
	res := stmt.Where("id = ?", id).Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *store[T]) buildQuery(ctx context.Context, scope tenantctx.Scope, opts ...option.QueryOption) (*gorm.DB, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	db := r.db.WithContext(ctx).Model(new(T)).Where("tenant_id = ?", scope.TenantID)
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db, nil
}

func stamp[T any](scope tenantctx.Scope, resource *T) {
	if owned, ok := any(resource).(TenantOwned); ok {
		owned.SetTenantID(scope.TenantID)
	}
}
