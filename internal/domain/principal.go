package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleResident  Role = "resident"
	RoleCollector Role = "collector"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleResident, RoleCollector, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Principal is the verified caller identity handed in by the auth layer.
// Capability checks live here so components ask one question instead of
// comparing role strings.
type Principal struct {
	SubjectID uuid.UUID
	Role      Role
}

func (p Principal) IsAdmin() bool     { return p.Role == RoleAdmin }
func (p Principal) IsCollector() bool { return p.Role == RoleCollector }
func (p Principal) IsResident() bool  { return p.Role == RoleResident }

func (p Principal) CanRequestPickup() bool { return p.IsResident() && p.SubjectID != uuid.Nil }

// CanComplete reports whether p may mark req completed.
func (p Principal) CanComplete(req *PickupRequest) bool {
	if p.IsAdmin() {
		return true
	}
	return p.IsCollector() && req.CollectorID != nil && *req.CollectorID == p.SubjectID
}

// CanCancel reports whether p may cancel req.
func (p Principal) CanCancel(req *PickupRequest) bool {
	if p.IsAdmin() {
		return true
	}
	return req.RequesterID == p.SubjectID
}

// CanView reports whether p may read req.
func (p Principal) CanView(req *PickupRequest) bool {
	if p.IsAdmin() || req.RequesterID == p.SubjectID {
		return true
	}
	return req.CollectorID != nil && *req.CollectorID == p.SubjectID
}

func (p Principal) CanViewCenter() bool { return p.IsAdmin() || p.IsCollector() }
func (p Principal) CanLookupRoute() bool { return p.IsAdmin() || p.IsCollector() }
