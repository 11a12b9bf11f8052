package memory

import (
	"context"
	"pickup-dispatch-service/internal/domain"
	"sync"
)

// GeocodeStore keeps address lookups in a map.
type GeocodeStore struct {
	mu     sync.RWMutex
	points map[string]domain.Coordinates
}

func NewGeocodeStore() *GeocodeStore {
	return &GeocodeStore{points: make(map[string]domain.Coordinates)}
}

func (s *GeocodeStore) GetGeocode(_ context.Context, address string) (domain.Coordinates, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.points[address]
	return c, ok, nil
}

func (s *GeocodeStore) PutGeocode(_ context.Context, address string, c domain.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[address] = c
	return nil
}
