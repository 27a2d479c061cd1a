package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisDedupCache(t *testing.T) *RedisDedupCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDedupCache(client)
}

func TestRedisDedupCache_MissReturnsFalse(t *testing.T) {
	c := newTestRedisDedupCache(t)

	_, ok := c.Seen(context.Background(), "email:jane@example.com")
	assert.False(t, ok)
}

func TestRedisDedupCache_RememberThenSeen(t *testing.T) {
	c := newTestRedisDedupCache(t)
	ctx := context.Background()

	c.Remember(ctx, "email:jane@example.com", "lead-1", 24*time.Hour)

	id, ok := c.Seen(ctx, "email:jane@example.com")
	require.True(t, ok)
	assert.Equal(t, "lead-1", id)
}
