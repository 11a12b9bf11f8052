package memory

import (
	"context"
	"pickup-dispatch-service/internal/domain"
	"sync"
)

// RouteStore keeps routes in a map. Used as the cache tier when no database
// is configured.
type RouteStore struct {
	mu     sync.RWMutex
	routes map[string]domain.Route
}

func NewRouteStore() *RouteStore {
	return &RouteStore{routes: make(map[string]domain.Route)}
}

func (s *RouteStore) GetRoute(_ context.Context, key string) (*domain.Route, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[key]
	if !ok {
		return nil, false, nil
	}
	out := cloneRoute(r)
	return &out, true, nil
}

func (s *RouteStore) PutRoute(_ context.Context, route *domain.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route.Key] = cloneRoute(*route)
	return nil
}

func (s *RouteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.routes)
}

func cloneRoute(r domain.Route) domain.Route {
	r.Steps = append([]domain.RouteStep(nil), r.Steps...)
	r.Waypoints = append([]domain.Coordinates(nil), r.Waypoints...)
	return r
}
