package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLockClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKeyedLockAcquireRelease(t *testing.T) {
	client := newLockClient(t)
	lock := NewKeyedLock(client, time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "lock:acme:role/teller")
	require.NoError(t, err)

	exists, err := client.Exists(ctx, "lock:acme:role/teller").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, exists)

	release()

	exists, err = client.Exists(ctx, "lock:acme:role/teller").Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, exists)
}

func TestKeyedLockBlocksSecondHolder(t *testing.T) {
	client := newLockClient(t)
	lock := NewKeyedLock(client, time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "lock:acme:role/teller")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := lock.Acquire(ctx, "lock:acme:role/teller")
		if err == nil {
			release2()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired while lock was held")
	case <-time.After(80 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired after release")
	}
}

func TestKeyedLockDistinctKeysDoNotContend(t *testing.T) {
	client := newLockClient(t)
	lock := NewKeyedLock(client, time.Second)
	ctx := context.Background()

	release1, err := lock.Acquire(ctx, "lock:acme:role/teller")
	require.NoError(t, err)
	defer release1()

	release2, err := lock.Acquire(ctx, "lock:acme:role/auditor")
	require.NoError(t, err)
	release2()
}

func TestKeyedLockHonorsContextCancellation(t *testing.T) {
	client := newLockClient(t)
	lock := NewKeyedLock(client, time.Second)

	release, err := lock.Acquire(context.Background(), "lock:acme:role/teller")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_, err = lock.Acquire(ctx, "lock:acme:role/teller")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
