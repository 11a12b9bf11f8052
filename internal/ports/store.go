package ports

import (
	"context"
	"errors"
	"pickup-dispatch-service/internal/domain"
	"time"

	"github.com/google/uuid"
)

// ErrNoneAvailable is the ledger's normal "nothing to claim" outcome.
var ErrNoneAvailable = errors.New("no available collector")

// AvailabilityLedger owns the per-collector availability flag.
type AvailabilityLedger interface {
	// ClaimNext atomically picks the available collector of centerID with the
	// oldest lastAssignedAt (never assigned first), marks it unavailable and
	// returns its id. It returns ErrNoneAvailable when nobody is free.
	ClaimNext(ctx context.Context, centerID uuid.UUID) (uuid.UUID, error)
	// Release marks the collector available. Releasing an available collector
	// is a no-op.
	Release(ctx context.Context, collectorID uuid.UUID) error
}

// Tx is the unit of work dispatch and lifecycle transitions run in. Writes made
// through a Tx become visible together or not at all.
type Tx interface {
	AvailabilityLedger
	InsertPickup(ctx context.Context, req *domain.PickupRequest) error
	// GetPickupForUpdate loads the request and locks it until the Tx ends.
	GetPickupForUpdate(ctx context.Context, id uuid.UUID) (*domain.PickupRequest, error)
	UpdatePickupStatus(ctx context.Context, id uuid.UUID, status domain.Status, completedAt *time.Time) error
	// TouchResident records the resident's most recent pickup time.
	TouchResident(ctx context.Context, residentID uuid.UUID, at time.Time) error
}

type TxRunner interface {
	// WithinTx runs fn in a transaction. fn's error rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type CenterRepository interface {
	ListCenters(ctx context.Context) ([]domain.Center, error)
	GetCenter(ctx context.Context, id uuid.UUID) (*domain.Center, error)
	CreateCenter(ctx context.Context, c *domain.Center) error
	ListCollectors(ctx context.Context, centerID uuid.UUID) ([]domain.Collector, error)
}

type PickupRepository interface {
	GetPickup(ctx context.Context, id uuid.UUID) (*domain.PickupRequest, error)
	// Newest first.
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.PickupRequest, error)
	ListOpenByCollector(ctx context.Context, collectorID uuid.UUID) ([]domain.PickupRequest, error)
	ListByCenter(ctx context.Context, centerID uuid.UUID) ([]domain.PickupRequest, error)
}

type AddressBook interface {
	// SaveAddress inserts addr unless an entry with the same text and
	// coordinates exists.
	SaveAddress(ctx context.Context, userID uuid.UUID, addr domain.SavedAddress) error
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.SavedAddress, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// CreateUser inserts u. Collectors must carry a CenterID.
	CreateUser(ctx context.Context, u *domain.User) error
}

// ActivityRepository exposes the read model the inactivity sweep scans.
type ActivityRepository interface {
	// ListActivity returns every identity with role and its latest activity:
	// last pickup for residents, latest completion for collectors.
	ListActivity(ctx context.Context, role domain.Role) ([]domain.Identity, error)
}

// Store aggregates everything the engine persists.
type Store interface {
	TxRunner
	AvailabilityLedger
	CenterRepository
	PickupRepository
	AddressBook
	UserRepository
	ActivityRepository
}
