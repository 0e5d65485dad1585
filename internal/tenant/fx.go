package tenant

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tenantdesk/internal/config"
	tenantcache "github.com/smallbiznis/tenantdesk/internal/tenant/cache"
	"github.com/smallbiznis/tenantdesk/internal/tenant/repository"
	"github.com/smallbiznis/tenantdesk/internal/tenant/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideCache),
	fx.Provide(service.New),
)

type cacheParams struct {
	fx.In

	Config config.Config
	Redis  *redis.Client `optional:"true"`
	Log    *zap.Logger
}

func provideCache(p cacheParams) tenantcache.Cache {
	if p.Redis != nil {
		return tenantcache.NewRedis(p.Redis, p.Config.TenantCacheTTL, p.Log.Named("tenant.cache"))
	}
	return tenantcache.NewMemory(p.Config.TenantCacheTTL)
}
