package dto

import (
	"pickup-dispatch-service/internal/domain"
	"time"

	"github.com/google/uuid"
)

type CreateCenterRequest struct {
	Name     string    `json:"name"`
	Location *Location `json:"location"`
}

type CenterResponse struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Location     Location    `json:"location"`
	CollectorIDs []uuid.UUID `json:"collector_ids"`
	CreatedAt    time.Time   `json:"created_at"`
}

func CenterFrom(c domain.Center) CenterResponse {
	ids := c.CollectorIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return CenterResponse{ID: c.ID, Name: c.Name, Location: LocationFrom(c.Location), CollectorIDs: ids, CreatedAt: c.CreatedAt}
}

type RegisterCollectorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CollectorResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	CenterID       uuid.UUID  `json:"center_id"`
	IsAvailable    bool       `json:"is_available"`
	LastAssignedAt *time.Time `json:"last_assigned_at"`
}

type ListCollectorsResponse struct {
	Collectors []CollectorResponse `json:"collectors"`
}

func CollectorsFrom(cs []domain.Collector) ListCollectorsResponse {
	res := ListCollectorsResponse{Collectors: make([]CollectorResponse, 0, len(cs))}
	for _, c := range cs {
		res.Collectors = append(res.Collectors, CollectorResponse(c))
	}
	return res
}
