package dto

import (
	"encoding/json"
	"pickup-dispatch-service/internal/domain"
	"time"
)

// RouteRequest takes endpoints as [lng, lat] pairs.
type RouteRequest struct {
	Start []float64 `json:"start"`
	End   []float64 `json:"end"`
}

type RouteStepResponse struct {
	Instruction     string  `json:"instruction"`
	Name            string  `json:"name"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type RouteResponse struct {
	Key             string              `json:"key"`
	Cached          bool                `json:"cached"`
	DistanceMeters  float64             `json:"distance_meters"`
	DurationSeconds float64             `json:"duration_seconds"`
	Steps           []RouteStepResponse `json:"steps"`
	Waypoints       [][]float64         `json:"waypoints"`
	Geometry        json.RawMessage     `json:"geometry,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func RouteFrom(r domain.Route, cached bool) RouteResponse {
	res := RouteResponse{
		Key:             r.Key,
		Cached:          cached,
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Steps:           make([]RouteStepResponse, 0, len(r.Steps)),
		Waypoints:       make([][]float64, 0, len(r.Waypoints)),
		CreatedAt:       r.CreatedAt,
	}
	for _, s := range r.Steps {
		res.Steps = append(res.Steps, RouteStepResponse(s))
	}
	for _, w := range r.Waypoints {
		res.Waypoints = append(res.Waypoints, w.CoordsToList())
	}
	return res
}
