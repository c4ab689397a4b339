package ports

import (
	"cadete-dispatch-service/internal/domain"
	"context"
)

// Contract for resolving free-form addresses and map points.
type Geocoder interface {
	// Resolve an address to a labelled waypoint, or domain.ErrGeocodeNotFound.
	Geocode(ctx context.Context, address string) (domain.Waypoint, error)
	// Describe a coordinate. Never fails: a placeholder label is returned instead.
	ReverseGeocode(ctx context.Context, c domain.Coordinate) string
}
