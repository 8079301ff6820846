// internal/services/locker_test.go
package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNoopLocker(t *testing.T) {
	release, err := NewNoopLocker().Acquire(testContext(t), "recompute:x")
	require.NoError(t, err)
	release()
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container skipped in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisLocker(t *testing.T) {
	rdb := startRedis(t)
	locker := &redisLocker{rdb: rdb, keyPrefix: "test:lock:", ttl: 5 * time.Second, wait: 100 * time.Millisecond}

	release, err := locker.Acquire(testContext(t), "recompute:a")
	require.NoError(t, err)

	_, err = locker.Acquire(testContext(t), "recompute:a")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	other, err := locker.Acquire(testContext(t), "recompute:b")
	require.NoError(t, err)
	other()

	release()
	again, err := locker.Acquire(testContext(t), "recompute:a")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	rdb := startRedis(t)
	locker := &redisLocker{rdb: rdb, keyPrefix: "test:lock:", ttl: 50 * time.Millisecond, wait: 0}

	release, err := locker.Acquire(testContext(t), "recompute:a")
	require.NoError(t, err)

	// the first holder's lease runs out and a second caller takes over
	time.Sleep(100 * time.Millisecond)
	second := &redisLocker{rdb: rdb, keyPrefix: "test:lock:", ttl: 5 * time.Second, wait: 0}
	_, err = second.Acquire(testContext(t), "recompute:a")
	require.NoError(t, err)

	release()
	exists, err := rdb.Exists(testContext(t), "test:lock:recompute:a").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists)
}
