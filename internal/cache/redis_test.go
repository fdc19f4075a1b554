package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name string  `json:"name"`
	CGPA float64 `json:"cgpa"`
}

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl), srv
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t, time.Minute)
	id := uuid.New()

	var got entry
	hit, err := c.Load(ctx, id, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Store(ctx, id, entry{Name: "Ada", CGPA: 4.2}))
	assert.True(t, srv.Exists(DefaultPrefix+id.String()))

	hit, err = c.Load(ctx, id, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, entry{Name: "Ada", CGPA: 4.2}, got)

	require.NoError(t, c.Invalidate(ctx, id))
	hit, err = c.Load(ctx, id, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t, 10*time.Second)
	id := uuid.New()

	require.NoError(t, c.Store(ctx, id, entry{Name: "Ada"}))
	assert.Equal(t, 10*time.Second, srv.TTL(DefaultPrefix+id.String()))

	srv.FastForward(11 * time.Second)
	var got entry
	hit, err := c.Load(ctx, id, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t, time.Minute)
	id := uuid.New()
	require.NoError(t, srv.Set(DefaultPrefix+id.String(), "{not json"))

	var got entry
	hit, err := c.Load(ctx, id, &got)
	assert.Error(t, err)
	assert.False(t, hit)
	assert.False(t, srv.Exists(DefaultPrefix+id.String()))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)

	c, err := Connect(ctx, "redis://"+srv.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, err = Connect(ctx, "not-a-url", time.Minute)
	assert.Error(t, err)
}
