//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestResponseCache(t *testing.T) {
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)

	client, err := NewClient(ctx, endpoint+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cache := NewResponseCache(client, 200*time.Millisecond)
	require.NoError(t, cache.Ping(ctx))

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", []byte(`{"count":6}`)))
	body, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"count":6}`, string(body))

	assert.Eventually(t, func() bool {
		_, ok, err := cache.Get(ctx, "k")
		return err == nil && !ok
	}, 5*time.Second, 50*time.Millisecond)
}
