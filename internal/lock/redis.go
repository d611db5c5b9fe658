package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so
// a holder whose lease expired cannot free someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based lock shared by every process using the same Redis.
// A key is held with SET NX PX; the lease (ttl) bounds how long a crashed
// holder can block others.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis returns a Redis locker.  Keys are stored as prefix:key.
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, retry: 25 * time.Millisecond}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	full := r.prefix + ":" + key
	token := uuid.NewString()
	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrNotAcquired
			}
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			// On failure the lease still expires on its own.
			_ = releaseScript.Run(rctx, r.rdb, []string{full}, token).Err()
		})
	}, nil
}
