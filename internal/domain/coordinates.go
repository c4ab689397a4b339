package domain

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

// Immutable geographic point (latitude, longitude) in WGS84 degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects NaN and out-of-range values.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return fmt.Errorf("coordinate %v: %w", c, ErrInvalidCoordinates)
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("coordinate %v: %w", c, ErrInvalidCoordinates)
	}
	return nil
}

// Return coordinates as [lng, lat] for GeoJSON and OSRM compatibility.
func (c Coordinate) LngLat() [2]float64 { return [2]float64{c.Lng, c.Lat} }

func (c Coordinate) String() string { return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng) }

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
