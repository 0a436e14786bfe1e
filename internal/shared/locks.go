package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// KeyedLock serializes work targeting the same entity key using redis
// SET NX PX. The TTL bounds how long a crashed holder can block others.
type KeyedLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKeyedLock returns a lock helper with the given holder TTL.
func NewKeyedLock(client *redis.Client, ttl time.Duration) *KeyedLock {
	return &KeyedLock{client: client, ttl: ttl}
}

// Acquire blocks until the key is held or the context ends. The returned
// function releases the lock; release after TTL expiry is a no-op.
func (l *KeyedLock) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("locks: acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("locks: acquire %s: %w", key, ctx.Err())
		case <-time.After(20 * time.Millisecond):
		}
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
