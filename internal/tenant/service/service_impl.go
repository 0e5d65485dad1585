package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/tenantdesk/internal/audit/domain"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"github.com/smallbiznis/tenantdesk/internal/observability/metrics"
	tenantcache "github.com/smallbiznis/tenantdesk/internal/tenant/cache"
	"github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/rls"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSchemaNameLen = 63

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        config.Config
	Repo          domain.Repository
	Cache         tenantcache.Cache
	Audit         auditdomain.Service   `optional:"true"`
	Metrics       *metrics.Metrics      `optional:"true"`
	Bootstrappers []domain.Bootstrapper `group:"tenant_bootstrappers"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	cfg           config.Config
	repo          domain.Repository
	cache         tenantcache.Cache
	audit         auditdomain.Service
	metrics       *metrics.Metrics
	bootstrappers []domain.Bootstrapper
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("tenant.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		cfg:           p.Config,
		repo:          p.Repo,
		cache:         p.Cache,
		audit:         p.Audit,
		metrics:       p.Metrics,
		bootstrappers: p.Bootstrappers,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTenantRequest) (domain.Tenant, error) {
	req, err := normalizeCreate(req)
	if err != nil {
		return domain.Tenant{}, err
	}

	now := s.clock.Now()
	tenant := domain.Tenant{
		ID:         s.genID.Generate(),
		Name:       req.Name,
		SchemaName: req.SchemaName,
		OnTrial:    true,
		CreatedOn:  now,
	}
	primary := domain.Domain{
		ID:        s.genID.Generate(),
		TenantID:  tenant.ID,
		Domain:    req.DomainName,
		IsPrimary: true,
	}
	scope := tenantctx.Scope{TenantID: tenant.ID, Partition: tenant.SchemaName}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.SchemaExists(ctx, tx, req.SchemaName)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: schema_name %q already exists", domain.ErrConflict, req.SchemaName)
		}
		exists, err = s.repo.DomainExists(ctx, tx, req.DomainName)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: domain %q already exists", domain.ErrConflict, req.DomainName)
		}

		if err := s.repo.Insert(ctx, tx, &tenant); err != nil {
			return err
		}
		if err := s.repo.InsertDomain(ctx, tx, &primary); err != nil {
			return err
		}
		if err := rls.WithTenant(tx, scope); err != nil {
			return err
		}
		for _, b := range s.bootstrappers {
			if err := b.Bootstrap(ctx, tx, scope, req); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Tenant{}, fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		if !errors.Is(err, domain.ErrConflict) && !errors.Is(err, validation.ErrInvalid) {
			s.log.Error("create tenant failed", zap.String("schema_name", req.SchemaName), zap.Error(err))
		}
		return domain.Tenant{}, err
	}

	tenant.Domains = []domain.Domain{primary}
	s.log.Info("tenant created", zap.String("schema_name", tenant.SchemaName), zap.String("domain", primary.Domain))
	if s.audit != nil {
		s.audit.Record(ctx, scope, auditdomain.Entry{
			Action:     "tenant.create",
			TargetType: "tenant",
			TargetID:   tenant.ID.String(),
			Metadata:   map[string]any{"domain": primary.Domain},
		})
	}
	return tenant, nil
}

func (s *Service) Resolve(ctx context.Context, host string) (domain.Tenant, error) {
	host = domain.NormalizeHost(host)
	if host == "" {
		return domain.Tenant{}, domain.ErrNotFound
	}

	if tenant, ok := s.cache.Get(ctx, host); ok {
		s.metrics.RecordTenantResolution(ctx, "hit")
		return tenant, nil
	}

	tenant, err := s.repo.FindByHost(ctx, s.db, host)
	if err != nil {
		return domain.Tenant{}, err
	}
	if tenant == nil {
		s.metrics.RecordTenantResolution(ctx, "not_found")
		return domain.Tenant{}, domain.ErrNotFound
	}

	s.metrics.RecordTenantResolution(ctx, "miss")
	s.cache.Set(ctx, host, *tenant)
	return *tenant, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if tenants == nil {
		tenants = []domain.Tenant{}
	}
	return tenants, nil
}

// EnsureSingle returns the tenant used in single-tenant mode, creating it
// when allowed and absent.
func (s *Service) EnsureSingle(ctx context.Context) (domain.Tenant, error) {
	schema := s.cfg.SingleTenantSchema
	if tenant, ok := s.cache.Get(ctx, singleKey(schema)); ok {
		return tenant, nil
	}

	tenant, err := s.repo.FindBySchema(ctx, s.db, schema)
	if err != nil {
		return domain.Tenant{}, err
	}
	if tenant == nil {
		if !s.cfg.SingleTenantCreate {
			return domain.Tenant{}, domain.ErrNotFound
		}
		created, err := s.Create(ctx, domain.CreateTenantRequest{
			Name:       s.cfg.SingleTenantName,
			SchemaName: schema,
			DomainName: schema + ".localhost",
		})
		if errors.Is(err, domain.ErrConflict) {
			return s.EnsureSingle(ctx)
		}
		if err != nil {
			return domain.Tenant{}, err
		}
		tenant = &created
	}

	s.cache.Set(ctx, singleKey(schema), *tenant)
	return *tenant, nil
}

func singleKey(schema string) string {
	return "schema:" + schema
}

func normalizeCreate(req domain.CreateTenantRequest) (domain.CreateTenantRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SchemaName = strings.TrimSpace(req.SchemaName)
	req.DomainName = domain.NormalizeHost(req.DomainName)
	req.AdminEmail = strings.ToLower(strings.TrimSpace(req.AdminEmail))
	req.AdminName = strings.TrimSpace(req.AdminName)

	var v validation.Collector
	v.Required("name", req.Name)
	v.Required("schema_name", req.SchemaName)
	v.Required("domain_name", req.DomainName)
	if req.SchemaName != "" && (!slug.IsSlug(req.SchemaName) || len(req.SchemaName) > maxSchemaNameLen) {
		v.Add("schema_name", "invalid_format", "schema_name must be lowercase letters, digits and hyphens")
	}
	if req.DomainName != "" && strings.ContainsAny(req.DomainName, " /\\@") {
		v.Add("domain_name", "invalid_format", "domain_name must be a bare hostname")
	}
	if (req.AdminEmail == "") != (req.AdminPassword == "") {
		v.Add("admin_email", "incomplete", "admin_email and admin_password must be supplied together")
	}
	if err := v.Err(); err != nil {
		return req, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return req, nil
}
