package ports

import (
	"context"
	"pickup-dispatch-service/internal/domain"
)

// Contract for fetching a driving route from an external routing service.
type RouteProvider interface {
	// Return the route between start and end. Implementations must honour ctx
	// deadlines and report a missing route as an error.
	Directions(ctx context.Context, start, end domain.Coordinates) (*domain.Route, error)
}

// Port: persistent storage for computed routes keyed by quantized endpoints.
type RouteStore interface {
	// Return the stored route for key, reporting false on a miss.
	GetRoute(ctx context.Context, key string) (*domain.Route, bool, error)
	// Store route under route.Key. A second write for the same key replaces the first.
	PutRoute(ctx context.Context, route *domain.Route) error
}
