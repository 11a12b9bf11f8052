package services

import (
	"context"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"pickup-dispatch-service/internal/ports"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AddressResolver turns pickup addresses into coordinates for requests that
// arrive without a location. Lookups are cached under the normalized address.
type AddressResolver struct {
	store    ports.GeocodeStore
	geocoder ports.Geocoder
	timeout  time.Duration
	log      zerolog.Logger
}

func NewAddressResolver(store ports.GeocodeStore, geocoder ports.Geocoder, log zerolog.Logger) *AddressResolver {
	return &AddressResolver{store: store, geocoder: geocoder, timeout: 8 * time.Second, log: log}
}

// NormalizeAddress collapses whitespace so equivalent inputs share a cache key.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (r *AddressResolver) Resolve(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "address.resolve")(&err)

	key := NormalizeAddress(address)
	if key == "" {
		return domain.Coordinates{}, domain.NewValidationError("address", "is required")
	}

	c, ok, err := r.store.GetGeocode(ctx, key)
	switch {
	case err != nil:
		r.log.Warn().Err(err).Str("address", key).Msg("geocode cache read failed")
	case ok && c.Validate() == nil:
		return c, nil
	case ok:
		r.log.Warn().Str("address", key).Msg("ignoring invalid cached geocode")
	}

	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	c, err = r.geocoder.Geocode(gctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrAddressNotFound) {
			return domain.Coordinates{}, domain.NewValidationError("address", "could not be located")
		}
		return domain.Coordinates{}, fmt.Errorf("resolve address: %w: %w", domain.ErrGeocodeUnavailable, err)
	}
	// Out-of-range provider answers are upstream faults and never cached.
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("resolve address: %w: %w", domain.ErrGeocodeUnavailable, err)
	}

	if err := r.store.PutGeocode(ctx, key, c); err != nil {
		r.log.Warn().Err(err).Str("address", key).Msg("geocode cache write failed")
	}
	return c, nil
}
