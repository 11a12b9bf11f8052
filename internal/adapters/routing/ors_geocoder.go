package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves one address with /geocode/search, taking the best match.
func (o *ORSRouteProvider) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.geocode")(&err)

	q := url.Values{"text": {address}, "size": {"1"}}
	if o.country != "" {
		q.Set("boundary.country", o.country)
	}
	var decoded geocodeResponse
	if err := o.call(ctx, orsCall{method: http.MethodGet, path: "/geocode/search", query: q}, &decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", address, domain.ErrAddressNotFound)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: invalid coordinate format", address)
	}
	out := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
	if err := out.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	return out, nil
}
