package dto

import (
	"pickup-dispatch-service/internal/domain"
	"time"

	"github.com/google/uuid"
)

// Location is a point as {"lng": .., "lat": ..}.
type Location struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (l Location) Coordinates() domain.Coordinates {
	return domain.Coordinates{Lon: l.Lng, Lat: l.Lat}
}

func LocationFrom(c domain.Coordinates) Location {
	return Location{Lng: c.Lon, Lat: c.Lat}
}

type CreatePickupRequest struct {
	Address   string    `json:"address"`
	Location  *Location `json:"location"`
	WasteType string    `json:"waste_type"`
	Urgency   string    `json:"urgency"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type PickupResponse struct {
	ID          uuid.UUID  `json:"id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	CenterID    uuid.UUID  `json:"center_id"`
	CollectorID *uuid.UUID `json:"collector_id"`
	Address     string     `json:"address"`
	Location    Location   `json:"location"`
	WasteType   string     `json:"waste_type"`
	Urgency     string     `json:"urgency"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func PickupFrom(p domain.PickupRequest) PickupResponse {
	return PickupResponse{
		ID:          p.ID,
		RequesterID: p.RequesterID,
		CenterID:    p.CenterID,
		CollectorID: p.CollectorID,
		Address:     p.Address,
		Location:    LocationFrom(p.Location),
		WasteType:   p.WasteType,
		Urgency:     string(p.Urgency),
		Status:      string(p.Status),
		RequestedAt: p.RequestedAt,
		CompletedAt: p.CompletedAt,
	}
}

func PickupsFrom(ps []domain.PickupRequest) []PickupResponse {
	out := make([]PickupResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, PickupFrom(p))
	}
	return out
}

type ListPickupsResponse struct {
	Pickups []PickupResponse `json:"pickups"`
}

type HistoryResponse struct {
	Pickups         []PickupResponse `json:"pickups"`
	LastWastePickup *time.Time       `json:"last_waste_pickup"`
}

type SavedAddressResponse struct {
	Address   string   `json:"address"`
	Location  Location `json:"location"`
	WasteType string   `json:"waste_type"`
	Urgency   string   `json:"urgency"`
}

type ListSavedAddressesResponse struct {
	Addresses []SavedAddressResponse `json:"addresses"`
}
