package locks

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PGLocker uses session-level advisory locks. The lock lives on a dedicated
// pooled connection until released.
type PGLocker struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPGLocker(pool *pgxpool.Pool, logger *zap.Logger) *PGLocker {
	return &PGLocker{pool: pool, logger: logger}
}

func (l *PGLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockID := hashKey(key)

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection for %s: %w", key, err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire lock for %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID); err != nil {
				l.logger.Error("Failed to release advisory lock", zap.String("key", key), zap.Error(err))
				// The session may still hold the lock; do not hand it back to the pool.
				conn.Conn().Close(context.Background())
			}
			conn.Release()
		})
	}, nil
}

func hashKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}
