// Package ratelimit bounds tool calls per actor with a fixed one-minute
// window, kept in Redis when configured and in memory otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const Window = time.Minute

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// New returns a Redis limiter when rdb is set, an in-memory one otherwise,
// and a no-op limiter when perMinute is not positive.
func New(rdb *redis.Client, perMinute int, log *zap.SugaredLogger) Limiter {
	if perMinute <= 0 {
		return unlimited{}
	}
	if rdb == nil {
		return NewMemory(perMinute, time.Now)
	}
	return &Redis{rdb: rdb, limit: perMinute, now: time.Now, log: log.Named("ratelimit")}
}

type unlimited struct{}

func (unlimited) Allow(context.Context, string) (Result, error) {
	return Result{Allowed: true}, nil
}

func windowStart(now time.Time) time.Time { return now.Truncate(Window) }

func result(limit, count int, now time.Time) Result {
	r := Result{Limit: limit, Remaining: limit - count, Allowed: count <= limit}
	if r.Remaining < 0 {
		r.Remaining = 0
	}
	if !r.Allowed {
		r.RetryAfter = windowStart(now).Add(Window).Sub(now)
	}
	return r
}

// Redis counts with INCR on a per-window key that expires with the window.
type Redis struct {
	rdb   *redis.Client
	limit int
	now   func() time.Time
	log   *zap.SugaredLogger
}

// Allow fails open when Redis is unreachable; the error is logged, not returned.
func (l *Redis) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	k := fmt.Sprintf("shoptools:rl:%s:%d", key, windowStart(now).Unix())
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		l.log.Warnw("rate limiter unavailable, allowing", "key", key, "err", err)
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}, nil
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, Window+time.Second).Err(); err != nil {
			l.log.Warnw("rate limiter expire failed", "key", key, "err", err)
		}
	}
	return result(l.limit, int(n), now), nil
}

// Memory is a single-process limiter.
type Memory struct {
	mu      sync.Mutex
	limit   int
	now     func() time.Time
	windows map[string]*counter
}

type counter struct {
	start time.Time
	n     int
}

func NewMemory(perMinute int, now func() time.Time) *Memory {
	return &Memory{limit: perMinute, now: now, windows: map[string]*counter{}}
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()
	start := windowStart(now)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.windows[key]
	if !ok || !c.start.Equal(start) {
		c = &counter{start: start}
		m.windows[key] = c
		m.gc(start)
	}
	c.n++
	return result(m.limit, c.n, now), nil
}

// gc drops counters from past windows. Called with mu held.
func (m *Memory) gc(current time.Time) {
	for k, c := range m.windows {
		if c.start.Before(current) {
			delete(m.windows, k)
		}
	}
}
