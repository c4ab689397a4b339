package ports

import (
	"cadete-dispatch-service/internal/domain"
	"context"
)

// Contract for computing a road route between two points.
type Router interface {
	// Return the route from -> to, or domain.ErrRouteNotFound.
	Route(ctx context.Context, from, to domain.Coordinate) (domain.Route, error)
}
