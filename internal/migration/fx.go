package migration

import (
	"context"
	"time"

	"github.com/smallbiznis/tenantdesk/internal/config"
	"github.com/smallbiznis/tenantdesk/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockKey  = "tenantdesk:migrations"
	lockTTL  = 5 * time.Minute
	lockWait = 2 * time.Minute
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Config  config.Config
	Tenants tenantdomain.Service
	Locker  *ratelimit.Locker `optional:"true"`
	Log     *zap.Logger
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p Params) error {
		ctx := context.Background()
		return p.Locker.WithLock(ctx, lockKey, lockTTL, lockWait, func(ctx context.Context) error {
			if err := Run(p.DB); err != nil {
				return err
			}
			p.Log.Info("database schema up to date", zap.String("dialect", p.DB.Dialector.Name()))

			if !p.Config.SingleTenant() {
				return nil
			}
			tenant, err := p.Tenants.EnsureSingle(ctx)
			if err != nil {
				return err
			}
			p.Log.Info("single tenant ready", zap.String("schema_name", tenant.SchemaName))
			return nil
		})
	}),
)
