package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts an attempt against key and rejects it with a *LimitedError
// once rule is exhausted. Disabled rules always allow.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) error
}

// DefaultPrefix namespaces limiter keys in a shared Redis.
const DefaultPrefix = "talenthub:rl:"

// RedisLimiter implements Limiter on Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLimiter creates a limiter on client. An empty prefix uses DefaultPrefix.
func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) error {
	if !rule.Enabled() {
		return nil
	}
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed window: the first hit starts it.
	if count == 1 {
		if err := l.client.PExpire(ctx, k, rule.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count <= int64(rule.Limit) {
		return nil
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl < 0 {
		// Lost expiry; restart the window so the key cannot stick forever.
		_ = l.client.PExpire(ctx, k, rule.Window).Err()
		ttl = rule.Window
	}
	return &LimitedError{Key: key, RetryAfter: roundUp(ttl)}
}

// Reset clears the counter for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// MemoryLimiter implements Limiter in process memory. It is only correct for
// a single instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-memory limiter. A nil clock uses time.Now.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{now: now, windows: make(map[string]*window)}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, rule Rule) error {
	if !rule.Enabled() {
		return nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		if len(l.windows) > 10000 {
			l.pruneLocked(now)
		}
		w = &window{resetAt: now.Add(rule.Window)}
		l.windows[key] = w
	}
	w.count++
	if w.count <= rule.Limit {
		return nil
	}
	return &LimitedError{Key: key, RetryAfter: roundUp(w.resetAt.Sub(now))}
}

// Reset clears the counter for key.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLimiter) pruneLocked(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}

// Key joins parts into a limiter key. Parts are lower-cased and colons are
// replaced so callers cannot forge another scope.
func Key(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		p = strings.ReplaceAll(p, ":", "_")
		if len(p) > 128 {
			p = p[:128]
		}
		out = append(out, p)
	}
	return strings.Join(out, ":")
}

// roundUp rounds to whole seconds, never below one, for Retry-After.
func roundUp(d time.Duration) time.Duration {
	if d <= time.Second {
		return time.Second
	}
	return (d + time.Second - 1) / time.Second * time.Second
}
