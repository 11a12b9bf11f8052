package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Statuses lists every declared status in lifecycle order.
var Statuses = []Status{StatusPending, StatusAssigned, StatusCompleted, StatusCanceled}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func (s Status) IsTerminal() bool { return s == StatusCompleted || s == StatusCanceled }

// IsOpen reports whether a request in this status still holds its collector.
func (s Status) IsOpen() bool { return s == StatusPending || s == StatusAssigned }

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency falls back to medium for empty or unknown values.
func ParseUrgency(s string) Urgency {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return u
	default:
		return UrgencyMedium
	}
}

// Represents a single resident request for waste collection.
// A PickupRequest is created by the dispatcher already bound to a center and a
// collector; afterwards only lifecycle transitions mutate it.
type PickupRequest struct {
	ID          uuid.UUID
	RequesterID uuid.UUID
	CenterID    uuid.UUID
	CollectorID *uuid.UUID
	Address     string
	Location    Coordinates
	WasteType   string
	Urgency     Urgency
	Status      Status
	RequestedAt time.Time
	CompletedAt *time.Time
}

// SavedAddress is an address a resident has requested a pickup at before.
// Two addresses are the same entry when text and coordinates match exactly.
type SavedAddress struct {
	Address   string
	Location  Coordinates
	WasteType string
	Urgency   Urgency
}

func (a SavedAddress) SameAs(o SavedAddress) bool {
	return a.Address == o.Address && a.Location == o.Location
}
