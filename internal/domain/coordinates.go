package domain

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean earth radius used for great-circle distances.
const EarthRadiusMeters = 6371008.8

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Validate reports whether the point lies within WGS84 bounds.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lon)
	}
	return nil
}

// DistanceMeters returns the haversine great-circle distance to o.
func (c Coordinates) DistanceMeters(o Coordinates) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := o.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (o.Lon - c.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Quantize rounds both axes to the given number of decimal places.
func (c Coordinates) Quantize(precision int) Coordinates {
	scale := math.Pow10(precision)
	q := func(v float64) float64 {
		r := math.Round(v*scale) / scale
		if r == 0 {
			// normalise -0 so keys stay stable
			return 0
		}
		return r
	}
	return Coordinates{Lon: q(c.Lon), Lat: q(c.Lat)}
}

// UnitVector maps the point onto the unit sphere (x, y, z).
// Euclidean order between unit vectors matches great-circle order.
func (c Coordinates) UnitVector() [3]float64 {
	lat := c.Lat * math.Pi / 180
	lon := c.Lon * math.Pi / 180
	return [3]float64{
		math.Cos(lat) * math.Cos(lon),
		math.Cos(lat) * math.Sin(lon),
		math.Sin(lat),
	}
}
