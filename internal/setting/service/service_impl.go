package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"github.com/smallbiznis/tenantdesk/internal/setting/domain"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"github.com/smallbiznis/tenantdesk/pkg/db"
	"github.com/smallbiznis/tenantdesk/pkg/db/option"
	"github.com/smallbiznis/tenantdesk/pkg/repository"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  repository.Repository[domain.Setting]
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("setting.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[domain.Setting](p.DB),
	}
}

func (s *Service) List(ctx context.Context) ([]*domain.Setting, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Find(ctx, scope,
		option.Equal("removed", false),
		option.QueryOptionFunc(func(tx *gorm.DB) *gorm.DB { return tx.Order("setting_key asc") }),
	)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Setting{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, key string) (*domain.Setting, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, s.repo, scope, strings.TrimSpace(key))
}

func (s *Service) Lookup(ctx context.Context, key string, out any) (bool, error) {
	setting, err := s.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(setting.Value) == 0 {
		return false, nil
	}
	return true, json.Unmarshal(setting.Value, out)
}

// Upsert stores value under key, creating the setting when absent.
func (s *Service) Upsert(ctx context.Context, key string, value any) (*domain.Setting, error) {
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)

	var v validation.Collector
	v.Required("key", key)
	if value == nil {
		v.Add("value", "required", "value is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, validation.New("value", "invalid_format", "value must be valid JSON")
	}

	var out *domain.Setting
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		existing, err := s.find(ctx, repo, scope, key)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		now := s.clock.Now()
		if existing != nil {
			if _, err := repo.Update(ctx, scope, existing.ID, map[string]any{
				"value":   datatypes.JSON(raw),
				"removed": false,
				"updated": now,
			}); err != nil {
				return err
			}
			existing.Value = raw
			existing.Updated = now
			out = existing
			return nil
		}

		created := &domain.Setting{
			ID:      s.genID.Generate(),
			Key:     key,
			Value:   raw,
			Enabled: true,
			Created: now,
			Updated: now,
		}
		if err := repo.Create(ctx, scope, created); err != nil {
			return err
		}
		out = created
		return nil
	})
	if db.IsDuplicateKeyErr(err) {
		return s.Upsert(ctx, key, value)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) find(ctx context.Context, repo repository.Repository[domain.Setting], scope tenantctx.Scope, key string) (*domain.Setting, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	item, err := repo.FindOne(ctx, scope, option.Equal("setting_key", key), option.Equal("removed", false))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// Bootstrapper seeds the configured default settings into a new tenant.
type Bootstrapper struct {
	svc      *Service
	defaults *config.DefaultsHolder
}

func NewBootstrapper(svc *Service, defaults *config.DefaultsHolder) *Bootstrapper {
	return &Bootstrapper{svc: svc, defaults: defaults}
}

func (b *Bootstrapper) Bootstrap(ctx context.Context, tx *gorm.DB, scope tenantctx.Scope, _ tenantdomain.CreateTenantRequest) error {
	values := b.defaults.Get().Settings
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := b.svc.clock.Now()
	rows := make([]*domain.Setting, 0, len(keys))
	for _, key := range keys {
		raw, err := json.Marshal(values[key])
		if err != nil {
			return err
		}
		rows = append(rows, &domain.Setting{
			ID:      b.svc.genID.Generate(),
			Key:     key,
			Value:   raw,
			Enabled: true,
			Created: now,
			Updated: now,
		})
	}
	return b.svc.repo.WithTrx(tx).BatchCreate(ctx, scope, rows)
}

var _ tenantdomain.Bootstrapper = (*Bootstrapper)(nil)
var _ domain.Service = (*Service)(nil)
