package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/tenantdesk/internal/clock"
	"github.com/smallbiznis/tenantdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBucketRefills(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b := NewMemoryBucket(fc)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := b.Allow(ctx, "k", 1, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := b.Allow(ctx, "k", 1, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	fc.Advance(time.Second)
	res, err = b.Allow(ctx, "k", 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryBucketValidates(t *testing.T) {
	b := NewMemoryBucket(nil)
	_, err := b.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = b.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestLoginLimiterWithoutRedis(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{LoginRate: 0.01, LoginBurst: 1}}
	l := NewLoginLimiter(LoginLimiterParams{
		Config: cfg,
		Clock:  clock.NewFakeClock(time.Now()),
		Log:    zap.NewNop(),
	})

	ctx := context.Background()
	res, err := l.Allow(ctx, "acme", "Admin@Example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "acme", "admin@example.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = l.Allow(ctx, "other", "admin@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilLockerRunsDirectly(t *testing.T) {
	var l *Locker
	called := false
	err := l.WithLock(context.Background(), "k", time.Second, time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
