package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(tenant).Error
}

func (r *repo) InsertDomain(ctx context.Context, db *gorm.DB, d *domain.Domain) error {
	return db.WithContext(ctx).Create(d).Error
}

func (r *repo) FindByHost(ctx context.Context, db *gorm.DB, host string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := db.WithContext(ctx).
		Joins("JOIN tenant_domains ON tenant_domains.tenant_id = tenants.id").
		Where("tenant_domains.domain = ?", host).
		Preload("Domains").
		Take(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repo) FindBySchema(ctx context.Context, db *gorm.DB, schemaName string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := db.WithContext(ctx).
		Where("schema_name = ?", schemaName).
		Preload("Domains").
		Take(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repo) SchemaExists(ctx context.Context, db *gorm.DB, schemaName string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Tenant{}).Where("schema_name = ?", schemaName).Count(&count).Error
	return count > 0, err
}

func (r *repo) DomainExists(ctx context.Context, db *gorm.DB, host string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Domain{}).Where("domain = ?", host).Count(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	err := db.WithContext(ctx).
		Preload("Domains", func(tx *gorm.DB) *gorm.DB { return tx.Order("is_primary desc, id") }).
		Order("created_on asc, id asc").
		Find(&tenants).Error
	return tenants, err
}
