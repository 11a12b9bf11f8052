package domain

import (
	"time"

	"github.com/google/uuid"
)

// Center is a collection facility with a fixed location and a collector roster.
type Center struct {
	ID           uuid.UUID
	Name         string
	Location     Coordinates
	CollectorIDs []uuid.UUID
	CreatedAt    time.Time
}

// Collector is the dispatch view of a user with the collector role.
type Collector struct {
	ID             uuid.UUID
	Name           string
	CenterID       uuid.UUID
	IsAvailable    bool
	LastAssignedAt *time.Time
}

// User is the subset of a registered account the engine reads.
type User struct {
	ID              uuid.UUID
	Name            string
	Email           string
	Role            Role
	CenterID        *uuid.UUID
	IsAvailable     bool
	LastAssignedAt  *time.Time
	LastWastePickup *time.Time
	CreatedAt       time.Time
}

// Identity is an account together with its most recent qualifying activity.
// LastActivity is nil when the account was never served.
type Identity struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Role         Role
	LastActivity *time.Time
}
