package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	appcache "github.com/smallbiznis/tenantdesk/internal/cache"
	"github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"go.uber.org/zap"
)

// Cache memoizes host → tenant lookups. Only positive results are stored.
type Cache interface {
	Get(ctx context.Context, host string) (domain.Tenant, bool)
	Set(ctx context.Context, host string, tenant domain.Tenant)
}

type memoryCache struct {
	items *appcache.TTLCache[string, domain.Tenant]
	ttl   time.Duration
}

func NewMemory(ttl time.Duration) Cache {
	return &memoryCache{items: appcache.NewTTLCache[string, domain.Tenant](), ttl: ttl}
}

func (c *memoryCache) Get(_ context.Context, host string) (domain.Tenant, bool) {
	return c.items.Get(host)
}

func (c *memoryCache) Set(_ context.Context, host string, tenant domain.Tenant) {
	c.items.Set(host, tenant, c.ttl)
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) Cache {
	return &redisCache{client: client, ttl: ttl, log: log}
}

func (c *redisCache) Get(ctx context.Context, host string) (domain.Tenant, bool) {
	raw, err := c.client.Get(ctx, key(host)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("tenant cache read failed", zap.String("host", host), zap.Error(err))
		}
		return domain.Tenant{}, false
	}
	var tenant domain.Tenant
	if err := json.Unmarshal(raw, &tenant); err != nil {
		return domain.Tenant{}, false
	}
	return tenant, true
}

func (c *redisCache) Set(ctx context.Context, host string, tenant domain.Tenant) {
	raw, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(host), raw, c.ttl).Err(); err != nil {
		c.log.Warn("tenant cache write failed", zap.String("host", host), zap.Error(err))
	}
}

func key(host string) string {
	return "tenant:host:" + host
}
