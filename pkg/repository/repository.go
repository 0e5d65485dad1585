package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/pkg/db/option"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"gorm.io/gorm"
)

// Repository is a tenant-scoped generic store. Every method takes the scope
// explicitly and constrains reads and writes to its tenant_id.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, scope tenantctx.Scope, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, scope tenantctx.Scope, opts ...option.QueryOption) (*T, error)
	Count(ctx context.Context, scope tenantctx.Scope, opts ...option.QueryOption) (int64, error)
	Create(ctx context.Context, scope tenantctx.Scope, resource *T) error
	BatchCreate(ctx context.Context, scope tenantctx.Scope, resources []*T) error
	Update(ctx context.Context, scope tenantctx.Scope, id snowflake.ID, fields map[string]any, opts ...option.QueryOption) (int64, error)
}

// TenantOwned is implemented by models carrying a tenant_id column.
type TenantOwned interface {
	SetTenantID(id snowflake.ID)
}
