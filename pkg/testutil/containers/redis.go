//go:build integration

package containers

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"wanderlog/internal/platform/config"
	"wanderlog/internal/platform/redis"
)

// RedisContainer is a Redis instance reached through the same client setup
// the server uses for REDIS_URL.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *goredis.Client
}

// NewRedisContainer starts Redis and connects with redis.New.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		abort(ctx, t, container, "failed to get redis connection string: %v", err)
	}

	client, err := redis.New(ctx, config.RedisConfig{URL: url, PoolSize: 4})
	if err != nil {
		abort(ctx, t, container, "failed to connect to redis: %v", err)
	}

	return &RedisContainer{Container: container, URL: url, Client: client.Client}
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
