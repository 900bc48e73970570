//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	ctx := context.Background()

	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	container, err := redismodule.Run(ctx, "redis:8.4.0-alpine")
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis uri: %v", err)
	}

	opt, err := redisclient.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse redis URL: %v", err)
	}

	client := redisclient.NewClient(opt)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(ctxWithTimeout).Err(); err != nil {
		client.Close()
		t.Fatalf("failed to ping redis: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestRedisStore(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewRedis(client, time.Minute)

	_, ok, err := store.Get(ctx, "card:none")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "card:1", []byte("<html>card</html>")))
	v, ok, err := store.Get(ctx, "card:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<html>card</html>", string(v))

	ttl, err := client.TTL(ctx, "kadrisk:card:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestTieredSharesAcrossLocalInstances(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first := NewTiered(NewMemory(10, time.Minute), NewRedis(client, time.Minute), nil)
	second := NewTiered(NewMemory(10, time.Minute), NewRedis(client, time.Minute), nil)

	require.NoError(t, first.Set(ctx, "pdf_text:u", []byte("решил: отказать")))
	v, ok, err := second.Get(ctx, "pdf_text:u")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "решил: отказать", string(v))
}
