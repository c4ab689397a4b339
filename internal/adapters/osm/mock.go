package osm

import (
	"cadete-dispatch-service/internal/domain"
	"context"
	"fmt"
	"sync"
)

// MockGeocoder resolves addresses from a fixed table. Unknown addresses are
// not found; reverse lookups fall back to Placeholder.
type MockGeocoder struct {
	mu          sync.Mutex
	places      map[string]domain.Coordinate
	labels      map[domain.Coordinate]string
	Placeholder string
	Calls       int
	// Hook, when set, runs before every lookup (tests use it to block).
	Hook func(ctx context.Context)
}

func NewMockGeocoder(places map[string]domain.Coordinate) *MockGeocoder {
	labels := make(map[domain.Coordinate]string, len(places))
	for addr, c := range places {
		labels[c] = addr
	}
	return &MockGeocoder{
		places:      places,
		labels:      labels,
		Placeholder: "Dirección desconocida, Gualeguaychú",
	}
}

func (g *MockGeocoder) Geocode(ctx context.Context, address string) (domain.Waypoint, error) {
	g.before(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.places[address]
	if !ok {
		return domain.Waypoint{}, fmt.Errorf("missing address %q: %w", address, domain.ErrGeocodeNotFound)
	}
	return domain.Waypoint{Coordinate: c, Address: address}, nil
}

func (g *MockGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinate) string {
	g.before(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()

	if l, ok := g.labels[c]; ok {
		return l
	}
	return g.Placeholder
}

func (g *MockGeocoder) before(ctx context.Context) {
	g.mu.Lock()
	g.Calls++
	hook := g.Hook
	g.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
}

// MockRouter routes by straight line unless a pair is overridden or failed.
type MockRouter struct {
	mu     sync.Mutex
	meters map[[2]domain.Coordinate]float64
	fail   map[[2]domain.Coordinate]bool
	Calls  int
	Hook   func(ctx context.Context)
}

func NewMockRouter() *MockRouter {
	return &MockRouter{
		meters: map[[2]domain.Coordinate]float64{},
		fail:   map[[2]domain.Coordinate]bool{},
	}
}

func (r *MockRouter) Set(from, to domain.Coordinate, meters float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meters[[2]domain.Coordinate{from, to}] = meters
}

func (r *MockRouter) Fail(from, to domain.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[[2]domain.Coordinate{from, to}] = true
}

func (r *MockRouter) Route(ctx context.Context, from, to domain.Coordinate) (domain.Route, error) {
	r.mu.Lock()
	r.Calls++
	hook := r.Hook
	r.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]domain.Coordinate{from, to}
	if r.fail[key] {
		return domain.Route{}, fmt.Errorf("mock route %s -> %s: %w", from, to, domain.ErrRouteNotFound)
	}
	m, ok := r.meters[key]
	if !ok {
		m = domain.HaversineMeters(from, to)
	}
	return domain.Route{
		Polyline:       []domain.Coordinate{from, to},
		DistanceMeters: m,
	}, nil
}
