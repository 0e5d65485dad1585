package ratelimit

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type bucketAllower interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}

// LoginLimiter throttles login and password-reset attempts per tenant and
// subject. Redis errors degrade to the in-process bucket.
type LoginLimiter struct {
	primary  bucketAllower
	fallback *MemoryBucket
	rate     float64
	burst    int
	log      *zap.Logger
}

type LoginLimiterParams struct {
	fx.In

	Config config.Config
	Redis  *redis.Client `optional:"true"`
	Clock  clock.Clock
	Log    *zap.Logger
}

func NewLoginLimiter(p LoginLimiterParams) *LoginLimiter {
	l := &LoginLimiter{
		fallback: NewMemoryBucket(p.Clock),
		rate:     p.Config.RateLimit.LoginRate,
		burst:    p.Config.RateLimit.LoginBurst,
		log:      p.Log.Named("ratelimit.login"),
	}
	if tb := NewTokenBucket(p.Redis); tb != nil {
		l.primary = tb
	}
	return l
}

// Allow reports whether another attempt is admitted. A limiter configured
// with a non-positive rate admits everything.
func (l *LoginLimiter) Allow(ctx context.Context, partition, subject string) (*Result, error) {
	if l == nil || l.rate <= 0 || l.burst <= 0 {
		return &Result{Allowed: true}, nil
	}
	key := "ratelimit:login:" + partition + ":" + strings.ToLower(strings.TrimSpace(subject))

	if l.primary != nil {
		res, err := l.primary.Allow(ctx, key, l.rate, l.burst)
		if err == nil {
			return res, nil
		}
		l.log.Warn("redis rate limit failed, using local bucket", zap.Error(err))
	}
	return l.fallback.Allow(ctx, key, l.rate, l.burst)
}
