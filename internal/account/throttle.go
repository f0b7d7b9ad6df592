package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/p-n-ai/pathshala/internal/platform/cache"
)

// LoginThrottle counts failed logins per key and locks the key out once
// the limit is reached, until the window expires.
type LoginThrottle interface {
	// Allow reports whether another login attempt may be made.
	Allow(ctx context.Context, key string) (bool, error)
	// Fail records a failed attempt.
	Fail(ctx context.Context, key string) error
	// Reset clears the failures, after a successful login.
	Reset(ctx context.Context, key string) error
}

// NoThrottle never locks anyone out.
type NoThrottle struct{}

func (NoThrottle) Allow(context.Context, string) (bool, error) { return true, nil }
func (NoThrottle) Fail(context.Context, string) error          { return nil }
func (NoThrottle) Reset(context.Context, string) error         { return nil }

type failureWindow struct {
	count   int
	expires time.Time
}

// MemoryThrottle is an in-memory LoginThrottle for development and tests.
type MemoryThrottle struct {
	limit    int
	window   time.Duration
	now      func() time.Time
	failures map[string]failureWindow
	mu       sync.Mutex
}

// NewMemoryThrottle allows limit failures per window.
func NewMemoryThrottle(limit int, window time.Duration) *MemoryThrottle {
	return &MemoryThrottle{
		limit:    limit,
		window:   window,
		now:      time.Now,
		failures: make(map[string]failureWindow),
	}
}

// SetClock replaces the time source.
func (t *MemoryThrottle) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

func (t *MemoryThrottle) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.failures[key]
	if !ok {
		return true, nil
	}
	if !t.now().Before(w.expires) {
		delete(t.failures, key)
		return true, nil
	}
	return w.count < t.limit, nil
}

func (t *MemoryThrottle) Fail(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	w, ok := t.failures[key]
	if !ok || !now.Before(w.expires) {
		w = failureWindow{expires: now.Add(t.window)}
	}
	w.count++
	t.failures[key] = w
	return nil
}

func (t *MemoryThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, key)
	return nil
}

// RedisThrottle keeps failure counters in Redis/Dragonfly so every
// replica sees the same lockouts.
type RedisThrottle struct {
	cache  *cache.Cache
	limit  int
	window time.Duration
}

// NewRedisThrottle allows limit failures per window.
func NewRedisThrottle(c *cache.Cache, limit int, window time.Duration) (*RedisThrottle, error) {
	if c == nil {
		return nil, fmt.Errorf("cache is nil")
	}
	return &RedisThrottle{cache: c, limit: limit, window: window}, nil
}

func throttleKey(key string) string {
	return cache.Key("login-failures", key)
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	n, err := t.cache.Client.Get(ctx, throttleKey(key)).Int()
	if err != nil {
		if cache.IsNil(err) {
			return true, nil
		}
		return false, fmt.Errorf("read login failures: %w", err)
	}
	return n < t.limit, nil
}

func (t *RedisThrottle) Fail(ctx context.Context, key string) error {
	k := throttleKey(key)
	pipe := t.cache.Client.TxPipeline()
	pipe.Incr(ctx, k)
	// NX keeps the window anchored at the first failure.
	pipe.ExpireNX(ctx, k, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	return t.cache.Delete(ctx, throttleKey(key))
}
