package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"strings"
)

// SQLRouteCache is a SQL-backed store for computed routes. Waypoints are kept
// as a WKB LineString, steps as JSON.
type SQLRouteCache struct {
	DB *sql.DB
}

func NewSQLRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db}
}

type storedStep struct {
	Instruction     string  `json:"instruction"`
	Name            string  `json:"name"`
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
}

// Fetch the cached route stored under key.
func (s *SQLRouteCache) GetRoute(ctx context.Context, key string) (_ *domain.Route, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("route cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get route cache: key must not be empty")
	}

	q := `
	SELECT start_lon, start_lat, end_lon, end_lat,
		distance_meters, duration_seconds, steps, waypoints, created_at
	FROM route_cache
	WHERE route_key = $1;
	`

	var (
		r         = domain.Route{Key: key}
		steps     []byte
		waypoints []byte
	)
	err = s.DB.QueryRowContext(ctx, q, key).Scan(
		&r.Start.Lon, &r.Start.Lat, &r.End.Lon, &r.End.Lat,
		&r.DistanceMeters, &r.DurationSeconds, &steps, &waypoints, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	var ss []storedStep
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &ss); err != nil {
			return nil, false, fmt.Errorf("get route cache: decode steps: %w", err)
		}
	}
	for _, st := range ss {
		r.Steps = append(r.Steps, domain.RouteStep(st))
	}

	if r.Waypoints, err = domain.UnmarshalWaypointsWKB(waypoints); err != nil {
		return nil, false, fmt.Errorf("get route cache: %w", err)
	}
	return &r, true, nil
}

// Store a route. Concurrent writers for the same key carry equivalent data, so
// the last one wins.
func (s *SQLRouteCache) PutRoute(ctx context.Context, route *domain.Route) (err error) {
	defer obs.Time(ctx, "route.cache.sql.Put")(&err)

	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if route == nil || strings.TrimSpace(route.Key) == "" {
		return errors.New("insert route cache: key must not be empty")
	}

	ss := make([]storedStep, 0, len(route.Steps))
	for _, st := range route.Steps {
		ss = append(ss, storedStep(st))
	}
	steps, err := json.Marshal(ss)
	if err != nil {
		return fmt.Errorf("insert route cache: encode steps: %w", err)
	}
	waypoints, err := domain.MarshalWaypointsWKB(route.Waypoints)
	if err != nil {
		return fmt.Errorf("insert route cache: encode waypoints: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO route_cache (route_key, start_lon, start_lat, end_lon, end_lat,
		distance_meters, duration_seconds, steps, waypoints, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (route_key) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		steps = EXCLUDED.steps,
		waypoints = EXCLUDED.waypoints;
	`,
		route.Key, route.Start.Lon, route.Start.Lat, route.End.Lon, route.End.Lat,
		route.DistanceMeters, route.DurationSeconds, string(steps), waypoints, route.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", route.Key, err)
	}
	return nil
}
