package domain

import (
	"encoding/binary"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// LineString converts waypoints into a 2D geometry.
func LineString(waypoints []Coordinates) (*geom.LineString, error) {
	coords := make([]geom.Coord, 0, len(waypoints))
	for _, w := range waypoints {
		coords = append(coords, geom.Coord{w.Lon, w.Lat})
	}
	return geom.NewLineString(geom.XY).SetCoords(coords)
}

// WaypointsFromGeometry reads the vertices of a LineString, dropping any
// elevation or measure axes.
func WaypointsFromGeometry(g geom.T) ([]Coordinates, error) {
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("expected LineString geometry, got %T", g)
	}
	out := make([]Coordinates, 0, ls.NumCoords())
	for _, c := range ls.Coords() {
		out = append(out, Coordinates{Lon: c.X(), Lat: c.Y()})
	}
	return out, nil
}

// MarshalWaypointsWKB encodes waypoints as a little-endian WKB LineString.
func MarshalWaypointsWKB(waypoints []Coordinates) ([]byte, error) {
	ls, err := LineString(waypoints)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(ls, binary.LittleEndian)
}

func UnmarshalWaypointsWKB(data []byte) ([]Coordinates, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode waypoints: %w", err)
	}
	return WaypointsFromGeometry(g)
}

// WaypointsGeoJSON returns the waypoints as a GeoJSON LineString geometry.
func WaypointsGeoJSON(waypoints []Coordinates) (*geojson.Geometry, error) {
	ls, err := LineString(waypoints)
	if err != nil {
		return nil, err
	}
	return geojson.Encode(ls)
}
