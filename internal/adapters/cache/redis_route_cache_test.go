package cache

import (
	"context"
	"errors"
	"pickup-dispatch-service/internal/adapters/memory"
	"pickup-dispatch-service/internal/domain"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoute(key string) *domain.Route {
	return &domain.Route{
		Key:             key,
		Start:           domain.Coordinates{Lon: 36.82194, Lat: -1.29207},
		End:             domain.Coordinates{Lon: 36.8172, Lat: -1.28333},
		DistanceMeters:  1840.5,
		DurationSeconds: 301.2,
		Steps: []domain.RouteStep{
			{Instruction: "Head north", Name: "Moi Avenue", DistanceMeters: 900, DurationSeconds: 150},
			{Instruction: "Arrive", Name: "-", DistanceMeters: 940.5, DurationSeconds: 151.2},
		},
		Waypoints: []domain.Coordinates{{Lon: 36.82194, Lat: -1.29207}, {Lon: 36.8172, Lat: -1.28333}},
		CreatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisRouteCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRouteCache(client, ttl), mr
}

func TestRedisRouteCacheRoundTrip(t *testing.T) {
	c, mr := newRedisCache(t, time.Hour)
	ctx := context.Background()

	_, ok, err := c.GetRoute(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleRoute("k1")
	require.NoError(t, c.PutRoute(ctx, want))
	assert.Equal(t, time.Hour, mr.TTL(redisKeyPrefix+"k1"))

	got, ok, err := c.GetRoute(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRedisRouteCacheExpires(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.PutRoute(ctx, sampleRoute("k1")))

	mr.FastForward(2 * time.Minute)

	_, ok, err := c.GetRoute(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingStore struct{}

func (failingStore) GetRoute(context.Context, string) (*domain.Route, bool, error) {
	return nil, false, errors.New("down")
}
func (failingStore) PutRoute(context.Context, *domain.Route) error { return errors.New("down") }

func TestLayeredRouteCacheBackfillsHotTier(t *testing.T) {
	hot, _ := newRedisCache(t, time.Hour)
	durable := memory.NewRouteStore()
	ctx := context.Background()
	require.NoError(t, durable.PutRoute(ctx, sampleRoute("k1")))

	c := NewLayeredRouteCache(hot, durable, zerolog.Nop())
	got, ok, err := c.GetRoute(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "k1", got.Key)

	_, ok, err = hot.GetRoute(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLayeredRouteCacheToleratesHotFailure(t *testing.T) {
	durable := memory.NewRouteStore()
	c := NewLayeredRouteCache(failingStore{}, durable, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, c.PutRoute(ctx, sampleRoute("k1")))
	got, ok, err := c.GetRoute(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1840.5, got.DistanceMeters, 1e-9)
}
