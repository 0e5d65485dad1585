package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	InsertDomain(ctx context.Context, db *gorm.DB, domain *Domain) error
	FindByHost(ctx context.Context, db *gorm.DB, host string) (*Tenant, error)
	FindBySchema(ctx context.Context, db *gorm.DB, schemaName string) (*Tenant, error)
	SchemaExists(ctx context.Context, db *gorm.DB, schemaName string) (bool, error)
	DomainExists(ctx context.Context, db *gorm.DB, host string) (bool, error)
	List(ctx context.Context, db *gorm.DB) ([]Tenant, error)
}
