package services

import (
	"context"
	"errors"
	"pickup-dispatch-service/internal/adapters/memory"
	"pickup-dispatch-service/internal/adapters/routing"
	"pickup-dispatch-service/internal/domain"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouteCache(provider *routing.MockRouteProvider) (*RouteCache, *memory.RouteStore) {
	store := memory.NewRouteStore()
	return NewRouteCache(store, provider, RouteCacheConfig{}, nil, zerolog.Nop()), store
}

func TestRouteCacheIdempotent(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	cache, store := newRouteCache(provider)
	ctx := context.Background()
	start := domain.Coordinates{Lon: 36.8219, Lat: -1.2921}
	end := domain.Coordinates{Lon: 36.8500, Lat: -1.3000}

	first, hit, err := cache.GetRoute(ctx, start, end)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, cache.Key(start, end), first.Key)

	second, hit, err := cache.GetRoute(ctx, start, end)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, first.DistanceMeters, second.DistanceMeters)
	assert.Equal(t, first.DurationSeconds, second.DurationSeconds)
	assert.Equal(t, first.Steps, second.Steps)
	assert.Equal(t, first.Waypoints, second.Waypoints)
	assert.Equal(t, 1, store.Len())
}

func TestRouteCacheQuantizesKey(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	cache, _ := newRouteCache(provider)
	ctx := context.Background()

	_, _, err := cache.GetRoute(ctx, domain.Coordinates{Lon: 1.000001, Lat: 2}, domain.Coordinates{Lon: 3, Lat: 4})
	require.NoError(t, err)
	_, hit, err := cache.GetRoute(ctx, domain.Coordinates{Lon: 1.000002, Lat: 2}, domain.Coordinates{Lon: 3, Lat: 4})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, provider.Calls())

	assert.Equal(t, "1.00000,2.00000|3.00000,4.00000", cache.Key(domain.Coordinates{Lon: 1.000001, Lat: 2}, domain.Coordinates{Lon: 3, Lat: 4}))
	assert.NotEqual(t,
		cache.Key(domain.Coordinates{Lon: 1, Lat: 2}, domain.Coordinates{Lon: 3, Lat: 4}),
		cache.Key(domain.Coordinates{Lon: 3, Lat: 4}, domain.Coordinates{Lon: 1, Lat: 2}),
		"direction matters")
}

func TestRouteCacheProviderErrorNotCached(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	provider.Err = errors.New("upstream 503")
	cache, store := newRouteCache(provider)
	ctx := context.Background()
	start, end := domain.Coordinates{Lon: 1, Lat: 1}, domain.Coordinates{Lon: 2, Lat: 2}

	_, _, err := cache.GetRoute(ctx, start, end)
	assert.ErrorIs(t, err, domain.ErrRouteUnavailable)
	assert.Zero(t, store.Len())

	provider.Err = nil
	route, hit, err := cache.GetRoute(ctx, start, end)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, route)
	assert.Equal(t, 2, provider.Calls())
}

func TestRouteCacheRejectsInvalidEndpoints(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	cache, _ := newRouteCache(provider)

	_, _, err := cache.GetRoute(context.Background(), domain.Coordinates{Lon: 200, Lat: 0}, domain.Coordinates{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, provider.Calls())
}
