package services

import (
	"context"
	"pickup-dispatch-service/internal/adapters/memory"
	"pickup-dispatch-service/internal/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store      *memory.Store
	geo        *GeoIndex
	dispatcher *Dispatcher
	lifecycle  *LifecycleMachine
	center     domain.Center
}

// newFixture builds a center at (0,0) with the given collectors.
func newFixture(t *testing.T, collectors ...domain.User) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	center := domain.Center{ID: uuid.New(), Name: "C", Location: domain.Coordinates{Lon: 0, Lat: 0}}
	require.NoError(t, store.CreateCenter(ctx, &center))
	for i := range collectors {
		collectors[i].Role = domain.RoleCollector
		collectors[i].CenterID = &center.ID
		require.NoError(t, store.CreateUser(ctx, &collectors[i]))
	}

	geo, err := LoadGeoIndex(ctx, store)
	require.NoError(t, err)

	return &fixture{
		store:      store,
		geo:        geo,
		dispatcher: NewDispatcher(store, geo),
		lifecycle:  NewLifecycleMachine(store, nil, zerolog.Nop()),
		center:     center,
	}
}

func resident(t *testing.T, s *memory.Store) domain.Principal {
	t.Helper()
	u := domain.User{ID: uuid.New(), Name: "r", Email: uuid.NewString() + "@resident.example", Role: domain.RoleResident}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	return domain.Principal{SubjectID: u.ID, Role: domain.RoleResident}
}

func collectorPrincipal(id uuid.UUID) domain.Principal {
	return domain.Principal{SubjectID: id, Role: domain.RoleCollector}
}

var admin = domain.Principal{SubjectID: uuid.New(), Role: domain.RoleAdmin}

func at(lon, lat float64) *domain.Coordinates {
	return &domain.Coordinates{Lon: lon, Lat: lat}
}

func epoch() *time.Time {
	t := time.Unix(0, 0).UTC()
	return &t
}
