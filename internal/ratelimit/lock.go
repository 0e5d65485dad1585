package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrLockHeld = errors.New("lock_held")

// Locker serializes startup work such as migrations across instances.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, script: redis.NewScript(unlockScript)}
}

// WithLock runs fn while holding key, polling until wait elapses. A nil
// Locker runs fn directly.
func (l *Locker) WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func(context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}

	owner := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.client.SetNX(ctx, key, owner, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ErrLockHeld
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	defer l.script.Run(context.WithoutCancel(ctx), l.client, []string{key}, owner)

	return fn(ctx)
}
