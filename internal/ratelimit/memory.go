package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/smallbiznis/tenantdesk/internal/clock"
)

type bucket struct {
	tokens float64
	ts     time.Time
}

// MemoryBucket is the single-process token bucket used when Redis is absent.
type MemoryBucket struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets map[string]*bucket
}

func NewMemoryBucket(c clock.Clock) *MemoryBucket {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &MemoryBucket{clock: c, buckets: make(map[string]*bucket)}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, rate float64, burst int) (*Result, error) {
	if err := validate(key, rate, burst); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(burst), ts: now}
		m.buckets[key] = b
	} else {
		elapsed := now.Sub(b.ts).Seconds()
		if elapsed > 0 {
			b.tokens = math.Min(float64(burst), b.tokens+elapsed*rate)
		}
		b.ts = now
	}

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}
	return result(allowed, b.tokens, rate, burst), nil
}
