package services

import (
	"context"
	"errors"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/ports"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertWithStatus stores a request in the given status, bound to collector.
func insertWithStatus(t *testing.T, f *fixture, requester uuid.UUID, collector *uuid.UUID, status domain.Status) domain.PickupRequest {
	t.Helper()
	req := domain.PickupRequest{
		ID:          uuid.New(),
		RequesterID: requester,
		CenterID:    f.center.ID,
		CollectorID: collector,
		Address:     "9 Oak Ave",
		WasteType:   "metal",
		Urgency:     domain.UrgencyMedium,
		Status:      status,
		RequestedAt: time.Now().UTC(),
	}
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.InsertPickup(ctx, &req)
	}))
	return req
}

func TestTransitionExhaustiveness(t *testing.T) {
	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				collectorID := uuid.New()
				f := newFixture(t, domain.User{ID: collectorID, IsAvailable: from.IsTerminal()})
				p := resident(t, f.store)
				req := insertWithStatus(t, f, p.SubjectID, &collectorID, from)

				_, err := f.lifecycle.Transition(context.Background(), req.ID, to, admin)

				stored, getErr := f.store.GetPickup(context.Background(), req.ID)
				require.NoError(t, getErr)
				if Permitted(from, to) {
					require.NoError(t, err)
					assert.Equal(t, to, stored.Status)
					return
				}

				var te *domain.TransitionError
				require.True(t, errors.As(err, &te), "got %v", err)
				assert.Equal(t, from, te.From)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.Equal(t, from, stored.Status)
				assert.Nil(t, stored.CompletedAt)

				u, getErr := f.store.GetUser(context.Background(), collectorID)
				require.NoError(t, getErr)
				assert.Equal(t, from.IsTerminal(), u.IsAvailable, "availability must not change")
			})
		}
	}
}

func TestPermittedEdges(t *testing.T) {
	assert.True(t, Permitted(domain.StatusPending, domain.StatusCompleted))
	assert.True(t, Permitted(domain.StatusPending, domain.StatusCanceled))
	assert.False(t, Permitted(domain.StatusPending, domain.StatusAssigned))
	assert.True(t, Permitted(domain.StatusAssigned, domain.StatusCanceled))
	assert.False(t, Permitted(domain.StatusAssigned, domain.StatusCompleted))
	assert.False(t, Permitted(domain.StatusCompleted, domain.StatusPending))
	assert.False(t, Permitted(domain.StatusCanceled, domain.StatusCompleted))
}

func TestTransitionWithoutCollector(t *testing.T) {
	f := newFixture(t)
	p := resident(t, f.store)
	req := insertWithStatus(t, f, p.SubjectID, nil, domain.StatusPending)

	_, err := f.lifecycle.Transition(context.Background(), req.ID, domain.StatusCompleted, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransitionPermissions(t *testing.T) {
	ctx := context.Background()
	collectorID := uuid.New()

	t.Run("other collector cannot complete", func(t *testing.T) {
		f := newFixture(t, domain.User{ID: collectorID})
		p := resident(t, f.store)
		req := insertWithStatus(t, f, p.SubjectID, &collectorID, domain.StatusPending)

		_, err := f.lifecycle.Complete(ctx, req.ID, collectorPrincipal(uuid.New()))
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
		_, err = f.lifecycle.Complete(ctx, req.ID, p)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)

		stored, err := f.store.GetPickup(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, stored.Status)
	})

	t.Run("requester cancels and releases collector", func(t *testing.T) {
		f := newFixture(t, domain.User{ID: collectorID})
		p := resident(t, f.store)
		req := insertWithStatus(t, f, p.SubjectID, &collectorID, domain.StatusPending)

		_, err := f.lifecycle.Cancel(ctx, req.ID, collectorPrincipal(collectorID))
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)

		out, err := f.lifecycle.Cancel(ctx, req.ID, p)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCanceled, out.Status)
		assert.NotNil(t, out.CompletedAt)

		u, err := f.store.GetUser(ctx, collectorID)
		require.NoError(t, err)
		assert.True(t, u.IsAvailable)
	})
}

func TestAssignedCancelReleasesCollector(t *testing.T) {
	ctx := context.Background()
	collectorID := uuid.New()
	f := newFixture(t, domain.User{ID: collectorID})
	p := resident(t, f.store)
	req := insertWithStatus(t, f, p.SubjectID, &collectorID, domain.StatusAssigned)

	_, err := f.lifecycle.Cancel(ctx, req.ID, p)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	_, err = f.lifecycle.Cancel(ctx, req.ID, collectorPrincipal(collectorID))
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	out, err := f.lifecycle.Cancel(ctx, req.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, out.Status)

	u, err := f.store.GetUser(ctx, collectorID)
	require.NoError(t, err)
	assert.True(t, u.IsAvailable)
}

func TestTransitionUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.Complete(context.Background(), uuid.New(), admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
