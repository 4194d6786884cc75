package backup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/advisorhub/backoffice/internal/apperr"
	"github.com/advisorhub/backoffice/pkg/logger"
)

// Locker extends the maintenance gate across instances sharing a store.
type Locker interface {
	// Acquire takes the lock and returns a release func, or an error when
	// the lock is held elsewhere.
	Acquire(ctx context.Context) (func(), error)
}

// RedisLocker implements Locker with a SET NX key holding a per-acquisition
// token. The TTL bounds how long a crashed holder can block maintenance.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = "maintenance:lock"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, &apperr.DependencyError{Dep: "redis lock", Err: err}
	}
	if !ok {
		return nil, apperr.Validation("maintenance", "maintenance lock held by another instance")
	}
	release := func() {
		// only delete our own token; an expired lock may have been re-acquired
		cur, err := l.client.Get(context.Background(), l.key).Result()
		if err != nil {
			if err != redis.Nil {
				logger.Warnf("maintenance lock release: %v", err)
			}
			return
		}
		if cur == token {
			if err := l.client.Del(context.Background(), l.key).Err(); err != nil {
				logger.Warnf("maintenance lock release: %v", err)
			}
		}
	}
	return release, nil
}
