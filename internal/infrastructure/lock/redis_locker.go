package lock

import (
	"context"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

type redisLocker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
}

// NewRedisLocker returns a Locker shared by every instance using client.
// Locks expire after expiry if the holder dies; card moves finish well
// within that window so the mutex is never extended.
func NewRedisLocker(client redis.UniversalClient, expiry time.Duration) Locker {
	if expiry <= 0 {
		expiry = 8 * time.Second
	}
	return &redisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: "planner:lock:",
		expiry: expiry,
	}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (ReleaseFunc, error) {
	mutex := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(64),
		redsync.WithRetryDelay(25*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return func() {}, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// An unlock failure only means the key expires on its own.
			_, _ = mutex.Unlock()
		})
	}, nil
}
