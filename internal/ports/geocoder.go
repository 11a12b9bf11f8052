package ports

import (
	"context"
	"pickup-dispatch-service/internal/domain"
)

// Contract for resolving a free-text address to a point.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}

// Port: persistent address -> coordinate mappings. Keys are normalized
// addresses.
type GeocodeStore interface {
	GetGeocode(ctx context.Context, address string) (domain.Coordinates, bool, error)
	PutGeocode(ctx context.Context, address string, c domain.Coordinates) error
}
