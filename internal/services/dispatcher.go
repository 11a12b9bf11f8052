package services

import (
	"context"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"pickup-dispatch-service/internal/ports"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxDispatchDistanceMeters bounds the nearest-center search.
const DefaultMaxDispatchDistanceMeters = 10000

// dispatchStore is the part of the store the dispatcher needs.
type dispatchStore interface {
	ports.TxRunner
	ports.AddressBook
}

type CreatePickupRequest struct {
	Address   string
	WasteType string
	Urgency   string

	// Location nil means the caller sent no coordinates. The address is then
	// geocoded if the dispatcher has a resolver, otherwise it is rejected.
	Location *domain.Coordinates
}

type Dispatcher struct {
	store       dispatchStore
	geo         *GeoIndex
	maxDistance float64
	resolver    *AddressResolver
	metrics     *obs.Metrics
	log         zerolog.Logger
	now         func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithMaxDistance(meters float64) DispatcherOption {
	return func(d *Dispatcher) {
		if meters > 0 {
			d.maxDistance = meters
		}
	}
}

func WithAddressResolver(r *AddressResolver) DispatcherOption {
	return func(d *Dispatcher) { d.resolver = r }
}

func WithDispatchMetrics(m *obs.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithDispatchLogger(l zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(store dispatchStore, geo *GeoIndex, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		geo:         geo,
		maxDistance: DefaultMaxDispatchDistanceMeters,
		log:         zerolog.Nop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// CreatePickup binds a new request to the nearest center and the longest idle
// collector there. The collector claim, the request insert and the resident's
// last pickup time commit together, so a failure leaves no collector
// stranded. The address is recorded on the resident's saved list afterwards.
func (d *Dispatcher) CreatePickup(ctx context.Context, p domain.Principal, in CreatePickupRequest) (req *domain.PickupRequest, err error) {
	defer obs.Time(ctx, "dispatch.create")(&err)
	defer func() { d.metrics.Dispatch(dispatchOutcome(err)) }()

	if !p.CanRequestPickup() {
		return nil, fmt.Errorf("create pickup: %w: only residents can request pickups", domain.ErrPermissionDenied)
	}

	addr := strings.TrimSpace(in.Address)
	wasteType := strings.TrimSpace(in.WasteType)
	switch {
	case addr == "":
		return nil, domain.NewValidationError("address", "is required")
	case wasteType == "":
		return nil, domain.NewValidationError("waste_type", "is required")
	case in.Location == nil && d.resolver == nil:
		return nil, domain.NewValidationError("location", "is required")
	}

	var loc domain.Coordinates
	if in.Location != nil {
		loc = *in.Location
		if err := loc.Validate(); err != nil {
			return nil, domain.NewValidationError("location", err.Error())
		}
	} else {
		if loc, err = d.resolver.Resolve(ctx, addr); err != nil {
			return nil, fmt.Errorf("create pickup: %w", err)
		}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("create pickup: geocoded %q: %w: %w", addr, domain.ErrGeocodeUnavailable, err)
		}
	}

	center, dist, err := d.geo.Nearest(loc, d.maxDistance)
	if err != nil {
		return nil, fmt.Errorf("create pickup: %w", err)
	}

	now := d.now().UTC()
	req = &domain.PickupRequest{
		ID:          uuid.New(),
		RequesterID: p.SubjectID,
		CenterID:    center.ID,
		Address:     addr,
		Location:    loc,
		WasteType:   wasteType,
		Urgency:     domain.ParseUrgency(in.Urgency),
		Status:      domain.StatusPending,
		RequestedAt: now,
	}

	err = d.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		collectorID, err := tx.ClaimNext(ctx, center.ID)
		if errors.Is(err, ports.ErrNoneAvailable) {
			return fmt.Errorf("%w: center %s", domain.ErrNoCollectorAvailable, center.ID)
		}
		if err != nil {
			return fmt.Errorf("claim collector: %w", err)
		}
		req.CollectorID = &collectorID

		if err := tx.InsertPickup(ctx, req); err != nil {
			return fmt.Errorf("insert pickup: %w", err)
		}
		if err := tx.TouchResident(ctx, p.SubjectID, now); err != nil {
			return fmt.Errorf("touch resident: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create pickup: %w", err)
	}

	saved := domain.SavedAddress{Address: addr, Location: loc, WasteType: wasteType, Urgency: req.Urgency}
	if err := d.store.SaveAddress(ctx, p.SubjectID, saved); err != nil {
		d.log.Warn().Err(err).Str("requester_id", p.SubjectID.String()).Msg("save address failed")
	}

	d.log.Info().
		Str("pickup_id", req.ID.String()).
		Str("center_id", center.ID.String()).
		Str("collector_id", req.CollectorID.String()).
		Float64("center_distance_m", dist).
		Msg("pickup dispatched")
	return req, nil
}

func dispatchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoCenterAvailable):
		return "no_center"
	case errors.Is(err, domain.ErrNoCollectorAvailable):
		return "no_collector"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "forbidden"
	default:
		return "error"
	}
}
