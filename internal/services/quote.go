package services

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/ports"
	"context"
	"fmt"
)

type Quote struct {
	Points         []domain.Waypoint
	DistanceMeters float64
	RatePerKm      float64
	Price          float64
}

// EstimateQuote prices the straight-line distance through the given
// addresses. Used when assigning a trip before it is routed.
func EstimateQuote(
	ctx context.Context,
	geocoder ports.Geocoder,
	pricing *PricingPolicy,
	origin string,
	destinations []string,
) (Quote, error) {
	if len(destinations) == 0 {
		return Quote{}, fmt.Errorf("estimate quote: %w", domain.ErrNoDestinations)
	}

	addrs := append([]string{origin}, destinations...)
	q := Quote{Points: make([]domain.Waypoint, 0, len(addrs))}

	for i, a := range addrs {
		wp, err := geocoder.Geocode(ctx, a)
		if err != nil {
			return Quote{}, fmt.Errorf("estimate quote: point %d: %w: %w", i, domain.ErrGeocodeFailure, err)
		}
		wp.ID = i
		if i > 0 {
			q.DistanceMeters += domain.HaversineMeters(q.Points[i-1].Coordinate, wp.Coordinate)
		}
		q.Points = append(q.Points, wp)
	}

	q.Price, q.RatePerKm = pricing.Quote(ctx, q.DistanceMeters)
	return q, nil
}
