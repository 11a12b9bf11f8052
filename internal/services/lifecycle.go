package services

import (
	"context"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"pickup-dispatch-service/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// transitionRule describes one permitted edge of the lifecycle graph.
type transitionRule struct {
	allowed func(p domain.Principal, req *domain.PickupRequest) bool

	// releases frees the assigned collector; stamps sets completedAt.
	releases bool
	stamps   bool
}

type edge struct{ from, to domain.Status }

// transitions is the single source of truth for status changes. Any pair not
// listed is rejected. Nothing writes assigned yet; an assigned request still
// holds its collector, so administrators can cancel it to free them.
var transitions = map[edge]transitionRule{
	{domain.StatusPending, domain.StatusCompleted}: {
		allowed:  domain.Principal.CanComplete,
		releases: true,
		stamps:   true,
	},
	{domain.StatusPending, domain.StatusCanceled}: {
		allowed:  domain.Principal.CanCancel,
		releases: true,
		stamps:   true,
	},
	{domain.StatusAssigned, domain.StatusCanceled}: {
		allowed:  adminOnly,
		releases: true,
		stamps:   true,
	},
}

func adminOnly(p domain.Principal, _ *domain.PickupRequest) bool { return p.IsAdmin() }

// Permitted reports whether from -> to is an edge of the lifecycle graph.
func Permitted(from, to domain.Status) bool {
	_, ok := transitions[edge{from, to}]
	return ok
}

type LifecycleMachine struct {
	store   ports.TxRunner
	metrics *obs.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewLifecycleMachine(store ports.TxRunner, metrics *obs.Metrics, log zerolog.Logger) *LifecycleMachine {
	return &LifecycleMachine{store: store, metrics: metrics, log: log, now: time.Now}
}

// Transition moves the request to status `to` on behalf of p. The status
// change and the collector release commit together; a rejected transition
// changes nothing and returns a *domain.TransitionError carrying the current
// status, or domain.ErrPermissionDenied when p may not perform a valid edge.
func (m *LifecycleMachine) Transition(ctx context.Context, id uuid.UUID, to domain.Status, p domain.Principal) (out *domain.PickupRequest, err error) {
	defer obs.Time(ctx, "lifecycle.transition")(&err)
	defer func() { m.metrics.Transition(string(to), transitionOutcome(err)) }()

	err = m.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		req, err := tx.GetPickupForUpdate(ctx, id)
		if err != nil {
			return err
		}

		rule, ok := transitions[edge{req.Status, to}]
		if !ok {
			return &domain.TransitionError{From: req.Status, To: to}
		}
		if req.CollectorID == nil {
			return &domain.TransitionError{From: req.Status, To: to, Reason: "request has no assigned collector"}
		}
		if !rule.allowed(p, req) {
			return fmt.Errorf("%w: %s may not move request to %s", domain.ErrPermissionDenied, p.Role, to)
		}

		var completedAt *time.Time
		if rule.stamps {
			t := m.now().UTC()
			completedAt = &t
		}
		if err := tx.UpdatePickupStatus(ctx, req.ID, to, completedAt); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if rule.releases {
			if err := tx.Release(ctx, *req.CollectorID); err != nil {
				return fmt.Errorf("release collector: %w", err)
			}
		}

		req.Status = to
		req.CompletedAt = completedAt
		out = req
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transition pickup %s: %w", id, err)
	}

	m.log.Info().
		Str("pickup_id", out.ID.String()).
		Str("status", string(out.Status)).
		Str("actor_role", string(p.Role)).
		Msg("pickup transitioned")
	return out, nil
}

// Complete is Transition to completed.
func (m *LifecycleMachine) Complete(ctx context.Context, id uuid.UUID, p domain.Principal) (*domain.PickupRequest, error) {
	return m.Transition(ctx, id, domain.StatusCompleted, p)
}

// Cancel is Transition to canceled.
func (m *LifecycleMachine) Cancel(ctx context.Context, id uuid.UUID, p domain.Principal) (*domain.PickupRequest, error) {
	return m.Transition(ctx, id, domain.StatusCanceled, p)
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
