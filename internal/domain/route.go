package domain

import (
	"fmt"
	"strconv"
	"time"
)

// RouteStep is one manoeuvre of a driving route.
type RouteStep struct {
	Instruction     string
	Name            string
	DistanceMeters  float64
	DurationSeconds float64
}

// Represents a route between two points as returned by the routing provider.
// Once stored under its key a Route is never recomputed; it is memoized data,
// not a source of truth.
type Route struct {
	Key             string
	Start           Coordinates
	End             Coordinates
	DistanceMeters  float64
	DurationSeconds float64
	Steps           []RouteStep
	Waypoints       []Coordinates
	CreatedAt       time.Time
}

// RouteKey builds the cache key for a start/end pair after quantizing both
// endpoints to precision decimal places.
func RouteKey(start, end Coordinates, precision int) string {
	s := start.Quantize(precision)
	e := end.Quantize(precision)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }
	return fmt.Sprintf("%s,%s|%s,%s", f(s.Lon), f(s.Lat), f(e.Lon), f(e.Lat))
}
