package services

import (
	"context"
	"errors"
	"pickup-dispatch-service/internal/adapters/memory"
	"pickup-dispatch-service/internal/adapters/routing"
	"pickup-dispatch-service/internal/domain"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "12 Market St Nairobi", NormalizeAddress("  12  Market\tSt\nNairobi "))
	assert.Empty(t, NormalizeAddress("   "))
}

func TestAddressResolverCaches(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	provider.AddPlace("12 Market St", domain.Coordinates{Lon: 36.82, Lat: -1.28})
	store := memory.NewGeocodeStore()
	r := NewAddressResolver(store, provider, zerolog.Nop())
	ctx := context.Background()

	c, err := r.Resolve(ctx, " 12   Market St ")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lon: 36.82, Lat: -1.28}, c)

	again, err := r.Resolve(ctx, "12 Market St")
	require.NoError(t, err)
	assert.Equal(t, c, again)
	assert.Equal(t, 1, provider.GeocodeCalls())
}

func TestAddressResolverErrors(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	r := NewAddressResolver(memory.NewGeocodeStore(), provider, zerolog.Nop())
	ctx := context.Background()

	_, err := r.Resolve(ctx, "Nowhere Lane")
	assert.ErrorIs(t, err, domain.ErrValidation)

	provider.Err = errors.New("upstream 502")
	_, err = r.Resolve(ctx, "Nowhere Lane")
	assert.ErrorIs(t, err, domain.ErrGeocodeUnavailable)
}

func TestCreatePickupGeocodesMissingLocation(t *testing.T) {
	collector := domain.User{ID: uuid.New(), IsAvailable: true}
	f := newFixture(t, collector)
	provider := routing.NewMockRouteProvider()
	provider.AddPlace("4 Kimathi St", domain.Coordinates{Lon: 0.004, Lat: 0.002})
	resolver := NewAddressResolver(memory.NewGeocodeStore(), provider, zerolog.Nop())
	d := NewDispatcher(f.store, f.geo, WithAddressResolver(resolver))

	req, err := d.CreatePickup(context.Background(), resident(t, f.store), CreatePickupRequest{
		Address: "4 Kimathi St", WasteType: "e-waste",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lon: 0.004, Lat: 0.002}, req.Location)
	assert.Equal(t, collector.ID, *req.CollectorID)
}

func TestAddressResolverRejectsOutOfRangeResult(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	provider.AddPlace("Null Island Annex", domain.Coordinates{Lon: 200, Lat: 95})
	store := memory.NewGeocodeStore()
	r := NewAddressResolver(store, provider, zerolog.Nop())
	ctx := context.Background()

	_, err := r.Resolve(ctx, "Null Island Annex")
	assert.ErrorIs(t, err, domain.ErrGeocodeUnavailable)

	_, cached, err := store.GetGeocode(ctx, "Null Island Annex")
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestAddressResolverRefetchesInvalidCacheEntry(t *testing.T) {
	provider := routing.NewMockRouteProvider()
	provider.AddPlace("7 Tom Mboya St", domain.Coordinates{Lon: 36.83, Lat: -1.28})
	store := memory.NewGeocodeStore()
	ctx := context.Background()
	require.NoError(t, store.PutGeocode(ctx, "7 Tom Mboya St", domain.Coordinates{Lon: -500, Lat: 0}))
	r := NewAddressResolver(store, provider, zerolog.Nop())

	c, err := r.Resolve(ctx, "7 Tom Mboya St")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lon: 36.83, Lat: -1.28}, c)
	assert.Equal(t, 1, provider.GeocodeCalls())
}

func TestCreatePickupRejectsBadGeocode(t *testing.T) {
	collector := domain.User{ID: uuid.New(), IsAvailable: true}
	f := newFixture(t, collector)
	provider := routing.NewMockRouteProvider()
	provider.AddPlace("Off The Map", domain.Coordinates{Lon: 181, Lat: 0})
	resolver := NewAddressResolver(memory.NewGeocodeStore(), provider, zerolog.Nop())
	d := NewDispatcher(f.store, f.geo, WithAddressResolver(resolver))
	ctx := context.Background()

	_, err := d.CreatePickup(ctx, resident(t, f.store), CreatePickupRequest{Address: "Off The Map", WasteType: "glass"})
	require.ErrorIs(t, err, domain.ErrGeocodeUnavailable)

	cs, err := f.store.ListCollectors(ctx, f.center.ID)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].IsAvailable)
}
