package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters(t *testing.T) {
	nairobi := Coordinates{Lon: 36.8219, Lat: -1.2921}
	mombasa := Coordinates{Lon: 39.6682, Lat: -4.0435}

	assert.InDelta(t, 440_000, nairobi.DistanceMeters(mombasa), 15_000)
	assert.Zero(t, nairobi.DistanceMeters(nairobi))
	assert.InDelta(t, nairobi.DistanceMeters(mombasa), mombasa.DistanceMeters(nairobi), 1e-6)
}

func TestRouteKeyQuantizes(t *testing.T) {
	a := Coordinates{Lon: 36.821901, Lat: -1.292099}
	b := Coordinates{Lon: 36.85, Lat: -1.3}

	assert.Equal(t, "36.82190,-1.29210|36.85000,-1.30000", RouteKey(a, b, 5))
	assert.Equal(t, RouteKey(a, b, 5), RouteKey(Coordinates{Lon: 36.8219012, Lat: -1.2920988}, b, 5))
	assert.Equal(t, "0.000,0.000|1.000,1.000", RouteKey(Coordinates{Lon: -0.0001, Lat: -0.0001}, Coordinates{Lon: 1, Lat: 1}, 3))
}

func TestWaypointsWKBRoundTrip(t *testing.T) {
	in := []Coordinates{{Lon: 36.8, Lat: -1.2}, {Lon: 36.81, Lat: -1.21}, {Lon: 36.82, Lat: -1.25}}

	raw, err := MarshalWaypointsWKB(in)
	require.NoError(t, err)
	out, err := UnmarshalWaypointsWKB(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := UnmarshalWaypointsWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestStatusHelpers(t *testing.T) {
	s, ok := ParseStatus(" Completed ")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, s)
	_, ok = ParseStatus("done")
	assert.False(t, ok)

	assert.True(t, StatusPending.IsOpen())
	assert.True(t, StatusAssigned.IsOpen())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.Equal(t, UrgencyMedium, ParseUrgency("whenever"))
}

func TestPrincipalCapabilities(t *testing.T) {
	resident := Principal{SubjectID: uuid.New(), Role: RoleResident}
	collector := Principal{SubjectID: uuid.New(), Role: RoleCollector}
	admin := Principal{SubjectID: uuid.New(), Role: RoleAdmin}
	req := &PickupRequest{RequesterID: resident.SubjectID, CollectorID: &collector.SubjectID}

	assert.True(t, resident.CanRequestPickup())
	assert.False(t, collector.CanRequestPickup())

	assert.True(t, collector.CanComplete(req))
	assert.True(t, admin.CanComplete(req))
	assert.False(t, resident.CanComplete(req))
	assert.False(t, Principal{SubjectID: uuid.New(), Role: RoleCollector}.CanComplete(req))

	assert.True(t, resident.CanCancel(req))
	assert.False(t, collector.CanCancel(req))

	assert.True(t, collector.CanView(req))
	assert.False(t, Principal{SubjectID: uuid.New(), Role: RoleResident}.CanView(req))
}

func TestErrorsMatchSentinels(t *testing.T) {
	assert.ErrorIs(t, NewValidationError("address", "is required"), ErrValidation)
	err := &TransitionError{From: StatusCompleted, To: StatusCanceled}
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "cannot transition completed -> canceled", err.Error())
}
