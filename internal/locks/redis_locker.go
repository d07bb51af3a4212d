package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// RedisLocker shares locks between instances with SET NX PX. Each
// acquisition stores a random token so only its holder can release it.
type RedisLocker struct {
	client       *redis.Client
	logger       *zap.Logger
	prefix       string
	ttl          time.Duration
	pollInterval time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:       client,
		logger:       logger,
		prefix:       "filezone:lock:",
		ttl:          ttl,
		pollInterval: 25 * time.Millisecond,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock for key %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock for %s: %w", key, ctx.Err())
		}
	}

	l.logger.Debug("Lock acquired", zap.String("key", key), zap.Duration("ttl", l.ttl))

	var once sync.Once
	return func() {
		once.Do(func() {
			res, err := l.client.Eval(context.Background(), releaseScript, []string{lockKey}, token).Int64()
			if err != nil {
				l.logger.Error("Failed to release lock", zap.String("key", key), zap.Error(err))
				return
			}
			if res == 0 {
				l.logger.Warn("Lock expired before release", zap.String("key", key))
			}
		})
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
