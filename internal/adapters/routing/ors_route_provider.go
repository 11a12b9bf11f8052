package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultProfile = "driving-car"
)

// ErrNoRoute is returned when the provider answers without any route.
var ErrNoRoute = errors.New("provider returned no route")

type ORSConfig struct {
	APIKey  string
	BaseURL string
	Profile string
	Timeout time.Duration

	// Country restricts geocoding to an ISO 3166-1 code when set.
	Country string
}

// ORSRouteProvider implements ports.RouteProvider and ports.Geocoder with the
// OpenRouteService directions and geocode APIs. It is safe for concurrent use.
type ORSRouteProvider struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	profile     string
	country     string
	maxAttempts int
	backoff     time.Duration
}

func NewORSRouteProvider(cfg ORSConfig) (*ORSRouteProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &ORSRouteProvider{
		session:     &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		profile:     cfg.Profile,
		country:     strings.ToUpper(strings.TrimSpace(cfg.Country)),
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
	}, nil
}

type directionsRequest struct {
	Coordinates        [][]float64 `json:"coordinates"`
	Instructions       bool        `json:"instructions"`
	InstructionsFormat string      `json:"instructions_format"`
}

type directionsResponse struct {
	Features []struct {
		Geometry   json.RawMessage `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
			Segments []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
				Steps    []struct {
					Distance    float64 `json:"distance"`
					Duration    float64 `json:"duration"`
					Instruction string  `json:"instruction"`
					Name        string  `json:"name"`
				} `json:"steps"`
			} `json:"segments"`
		} `json:"properties"`
	} `json:"features"`
}

// Fetch a driving route between two points.
func (o *ORSRouteProvider) Directions(ctx context.Context, start, end domain.Coordinates) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "ors.Directions")(&err)

	payload, err := json.Marshal(directionsRequest{
		Coordinates:        [][]float64{start.CoordsToList(), end.CoordsToList()},
		Instructions:       true,
		InstructionsFormat: "text",
	})
	if err != nil {
		return nil, fmt.Errorf("encode directions request: %w", err)
	}

	var body directionsResponse
	err = o.call(ctx, orsCall{
		method: http.MethodPost,
		path:   "/v2/directions/" + o.profile + "/geojson",
		body:   payload,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("ORS directions: %w", err)
	}
	if len(body.Features) == 0 {
		return nil, ErrNoRoute
	}

	feature := body.Features[0]
	route := &domain.Route{
		Start:           start,
		End:             end,
		DistanceMeters:  feature.Properties.Summary.Distance,
		DurationSeconds: feature.Properties.Summary.Duration,
	}

	var segDistance, segDuration float64
	for _, seg := range feature.Properties.Segments {
		segDistance += seg.Distance
		segDuration += seg.Duration
		for _, st := range seg.Steps {
			route.Steps = append(route.Steps, domain.RouteStep{
				Instruction:     st.Instruction,
				Name:            st.Name,
				DistanceMeters:  st.Distance,
				DurationSeconds: st.Duration,
			})
		}
	}
	// Older API versions omit the summary.
	if route.DistanceMeters == 0 && route.DurationSeconds == 0 {
		route.DistanceMeters, route.DurationSeconds = segDistance, segDuration
	}

	if len(feature.Geometry) > 0 && string(feature.Geometry) != "null" {
		var g geom.T
		if err := geojson.Unmarshal(feature.Geometry, &g); err != nil {
			return nil, fmt.Errorf("decode route geometry: %w", err)
		}
		if route.Waypoints, err = domain.WaypointsFromGeometry(g); err != nil {
			return nil, fmt.Errorf("decode route geometry: %w", err)
		}
	}

	return route, nil
}
