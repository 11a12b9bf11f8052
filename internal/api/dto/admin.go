package dto

import (
	"time"

	"github.com/google/uuid"
)

type IdentityResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	LastActivity *time.Time `json:"last_activity"`
}

type InactiveResponse struct {
	Role       string             `json:"role"`
	WindowDays int                `json:"window_days"`
	Identities []IdentityResponse `json:"identities"`
}

type SweepReportResponse struct {
	Role     string `json:"role"`
	Inactive int    `json:"inactive"`
	Notified int    `json:"notified"`
	Failed   int    `json:"failed"`
}

type SweepResponse struct {
	Reports []SweepReportResponse `json:"reports"`
}
