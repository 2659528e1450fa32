package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"relate-backend/storage"
)

// ErrRateLimited is returned by Allow when the token has exhausted its window.
var ErrRateLimited = errors.New("rate limited")

// Limiter enforces a sliding-window request budget per token. A token is an
// arbitrary caller identity: a client IP for the widget, a fixed string for
// shared webhook endpoints.
type Limiter interface {
	Allow(ctx context.Context, limit int, token string) error
}

// Memory is an in-process sliding-window limiter. State is bounded: when the
// number of tracked tokens reaches maxTokens, the oldest-seen token is
// evicted before a new one is admitted.
type Memory struct {
	mu        sync.Mutex
	interval  time.Duration
	maxTokens int
	hits      map[string][]time.Time
	order     []string

	now func() time.Time
}

// NewMemory creates a memory limiter with the given window and token ceiling.
func NewMemory(interval time.Duration, maxTokens int) *Memory {
	return &Memory{
		interval:  interval,
		maxTokens: maxTokens,
		hits:      make(map[string][]time.Time),
		now:       time.Now,
	}
}

// Allow records one request for token and returns ErrRateLimited when more
// than limit requests fall within the trailing interval. The rejected request
// is not recorded.
func (m *Memory) Allow(_ context.Context, limit int, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.interval)

	window, known := m.hits[token]
	live := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}

	if len(live) >= limit {
		m.hits[token] = live
		return ErrRateLimited
	}

	if !known {
		m.admit(token)
	}
	m.hits[token] = append(live, now)
	return nil
}

// admit registers a new token, evicting the oldest-seen one if the ceiling is
// reached. Caller holds the lock.
func (m *Memory) admit(token string) {
	if m.maxTokens > 0 && len(m.order) >= m.maxTokens {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.hits, oldest)
	}
	m.order = append(m.order, token)
}

// Redis is a limiter backed by a shared Redis window, for deployments with
// more than one instance behind a load balancer.
type Redis struct {
	client   *storage.RedisClient
	interval time.Duration
}

// NewRedis creates a Redis-backed limiter with the given window.
func NewRedis(client *storage.RedisClient, interval time.Duration) *Redis {
	return &Redis{client: client, interval: interval}
}

func (r *Redis) Allow(ctx context.Context, limit int, token string) error {
	ok, err := r.client.AllowWindow(ctx, token, limit, r.interval)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}
