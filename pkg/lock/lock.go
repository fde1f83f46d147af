// Package lock provides channel-scoped mutual exclusion across API
// instances for long close-out operations.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when another holder owns the key.
var ErrNotObtained = errors.New("lock not obtained")

// Locker obtains a named lock and returns its release function.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker is backed by bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lk, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lk.Release(context.Background())
	}, nil
}

// LocalLocker is an in-process fallback used when redis is not configured
// and in tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Obtain(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrNotObtained
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
