package routing

import (
	"context"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"sync"
)

// MockRouteProvider serves routes and places from fixed tables and counts
// calls. Unknown pairs fall back to a straight line with distance from
// haversine and a constant speed, unless Strict is set. Unknown addresses
// always fail with domain.ErrAddressNotFound.
type MockRouteProvider struct {
	mu           sync.Mutex
	routes       map[[2]domain.Coordinates]domain.Route
	places       map[string]domain.Coordinates
	calls        int
	geocodeCalls int
	Strict       bool
	Err          error
}

func NewMockRouteProvider(routes ...domain.Route) *MockRouteProvider {
	m := &MockRouteProvider{
		routes: make(map[[2]domain.Coordinates]domain.Route, len(routes)),
		places: make(map[string]domain.Coordinates),
	}
	for _, r := range routes {
		m.routes[[2]domain.Coordinates{r.Start, r.End}] = r
	}
	return m
}

func (p *MockRouteProvider) Directions(ctx context.Context, start, end domain.Coordinates) (*domain.Route, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if r, ok := p.routes[[2]domain.Coordinates{start, end}]; ok {
		out := r
		out.Steps = append([]domain.RouteStep(nil), r.Steps...)
		out.Waypoints = append([]domain.Coordinates(nil), r.Waypoints...)
		return &out, nil
	}
	if p.Strict {
		return nil, fmt.Errorf("missing route %v -> %v: %w", start, end, ErrNoRoute)
	}

	const metersPerSecond = 10.0
	d := start.DistanceMeters(end)
	return &domain.Route{
		Start:           start,
		End:             end,
		DistanceMeters:  d,
		DurationSeconds: d / metersPerSecond,
		Steps: []domain.RouteStep{
			{Instruction: "Head to destination", DistanceMeters: d, DurationSeconds: d / metersPerSecond},
		},
		Waypoints: []domain.Coordinates{start, end},
	}, nil
}

func (p *MockRouteProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// AddPlace registers a geocode answer for address.
func (p *MockRouteProvider) AddPlace(address string, c domain.Coordinates) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.places[address] = c
}

func (p *MockRouteProvider) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.geocodeCalls++

	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	if p.Err != nil {
		return domain.Coordinates{}, p.Err
	}
	c, ok := p.places[address]
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", address, domain.ErrAddressNotFound)
	}
	return c, nil
}

func (p *MockRouteProvider) GeocodeCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.geocodeCalls
}
