package services

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

type Mode string

const (
	// ModeSingle finalizes automatically once the destination is set.
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMulti:
		return ModeMulti, nil
	case ModeSingle:
		return ModeSingle, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Point is user input for a waypoint: a map click or a typed address.
type Point struct {
	Coordinate *domain.Coordinate
	Address    string
}

func AtCoordinate(c domain.Coordinate) Point { return Point{Coordinate: &c} }
func AtAddress(a string) Point               { return Point{Address: a} }

// Committer turns a built trip into an active one. Implementations must run
// the duplicate check atomically with the insert.
type Committer interface {
	Commit(ctx context.Context, trip domain.Trip) (domain.Trip, error)
}

type BuilderDeps struct {
	Geocoder            ports.Geocoder
	Router              ports.Router
	Pricing             *PricingPolicy
	Committer           Committer
	Palette             *domain.Palette
	IDs                 *IDSource
	Now                 func() time.Time
	MinSeparationMeters float64
	Metrics             Metrics
}

// TripBuilder is one dispatcher's in-progress trip.
//
// Operations that touch the network are not re-entrant: while one runs, any
// other add/remove/finalize fails fast with domain.ErrBusy. Cancel is always
// accepted. It bumps the generation so an in-flight operation discards its
// results with domain.ErrCancelled once its network call returns.
type TripBuilder struct {
	deps BuilderDeps
	mode Mode

	mu   sync.Mutex
	busy bool
	gen  uint64
	trip *domain.Trip
}

func NewTripBuilder(mode Mode, deps BuilderDeps) *TripBuilder {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Palette == nil {
		deps.Palette = domain.NewPalette(nil)
	}
	if deps.IDs == nil {
		deps.IDs = &IDSource{}
	}
	deps.Metrics = metricsOrNop(deps.Metrics)
	return &TripBuilder{deps: deps, mode: mode}
}

func (b *TripBuilder) Mode() Mode { return b.mode }

// Snapshot returns a copy of the in-progress trip, if any.
func (b *TripBuilder) Snapshot() (domain.Trip, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.trip == nil {
		return domain.Trip{}, false
	}
	return b.trip.Clone(), true
}

// Cancel discards the in-progress trip and any in-flight operation.
func (b *TripBuilder) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	b.busy = false
	b.trip = nil
}

// AddOrigin starts a trip at p. Coordinates are labelled by reverse
// geocoding, which never fails; addresses must geocode.
func (b *TripBuilder) AddOrigin(ctx context.Context, p Point) (domain.Trip, error) {
	g, err := b.begin()
	if err != nil {
		return domain.Trip{}, fmt.Errorf("add origin: %w", err)
	}
	defer b.end(g)

	b.mu.Lock()
	started := b.trip != nil
	b.mu.Unlock()
	if started {
		return domain.Trip{}, fmt.Errorf("add origin: trip already started: %w", domain.ErrInvalidState)
	}

	wp, err := b.resolve(ctx, p)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("add origin: %w", err)
	}
	rate := b.deps.Pricing.Rate(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stale(ctx, g) {
		return domain.Trip{}, fmt.Errorf("add origin: %w", domain.ErrCancelled)
	}

	now := b.deps.Now()
	wp.ID = 0
	b.trip = &domain.Trip{
		ID:           b.deps.IDs.Next(now),
		Origin:       wp,
		Destinations: []domain.Waypoint{},
		Segments:     []*domain.Route{},
		Status:       domain.TripStatusBuilding,
		Color:        b.deps.Palette.Next(),
		CreatedAt:    now,
	}
	b.trip.Recompute(rate)

	return b.trip.Clone(), nil
}

// AddDestination appends p, routes the new leg and reprices the trip.
// A failed route leaves a nil segment. In single mode the trip is then
// finalized; if the commit fails (duplicate, storage) the destination is
// removed again so the session can retry. If ctx ends before the results
// are applied nothing changes and domain.ErrCancelled is returned.
func (b *TripBuilder) AddDestination(ctx context.Context, p Point) (domain.Trip, error) {
	g, err := b.begin()
	if err != nil {
		return domain.Trip{}, fmt.Errorf("add destination: %w", err)
	}
	defer b.end(g)

	b.mu.Lock()
	if b.trip == nil {
		b.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("add destination: no origin: %w", domain.ErrInvalidState)
	}
	if b.mode == ModeSingle && len(b.trip.Destinations) > 0 {
		b.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("add destination: single trip already has a destination: %w", domain.ErrInvalidState)
	}
	prev := b.trip.Last().Coordinate
	b.mu.Unlock()

	var wp domain.Waypoint
	if p.Coordinate != nil {
		// Clicks are checked before spending a reverse geocode on them.
		if err := b.checkSeparation(prev, *p.Coordinate); err != nil {
			return domain.Trip{}, fmt.Errorf("add destination: %w", err)
		}
	}
	wp, err = b.resolve(ctx, p)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("add destination: %w", err)
	}
	if p.Coordinate == nil {
		if err := b.checkSeparation(prev, wp.Coordinate); err != nil {
			return domain.Trip{}, fmt.Errorf("add destination: %w", err)
		}
	}
	if err := b.alive(ctx, g); err != nil {
		return domain.Trip{}, fmt.Errorf("add destination: %w", err)
	}

	seg := b.route(ctx, prev, wp.Coordinate)
	rate := b.deps.Pricing.Rate(ctx)

	b.mu.Lock()
	if b.stale(ctx, g) {
		b.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("add destination: %w", domain.ErrCancelled)
	}
	wp.ID = b.trip.NextWaypointID()
	b.trip.Destinations = append(b.trip.Destinations, wp)
	b.trip.Segments = append(b.trip.Segments, seg)
	b.trip.Recompute(rate)
	snap := b.trip.Clone()
	b.mu.Unlock()

	if b.mode != ModeSingle {
		return snap, nil
	}

	committed, err := b.finalize(ctx, g)
	if err != nil {
		b.mu.Lock()
		if b.gen == g && b.trip != nil {
			if i := b.trip.DestinationIndex(wp.ID); i >= 0 {
				b.trip.Destinations = append(b.trip.Destinations[:i], b.trip.Destinations[i+1:]...)
				b.trip.Segments = append(b.trip.Segments[:i], b.trip.Segments[i+1:]...)
				b.trip.Recompute(rate)
			}
		}
		b.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("add destination: %w", err)
	}
	return committed, nil
}

// RemoveWaypoint deletes waypoint id from the trip.
//
// Removing the origin cancels the trip and returns it with status
// cancelled. Removing the last destination drops its segment. Removing an
// intermediate destination re-routes its predecessor to its successor.
func (b *TripBuilder) RemoveWaypoint(ctx context.Context, id int) (domain.Trip, error) {
	g, err := b.begin()
	if err != nil {
		return domain.Trip{}, fmt.Errorf("remove waypoint: %w", err)
	}
	defer b.end(g)

	b.mu.Lock()
	if b.trip == nil {
		b.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("remove waypoint: no trip: %w", domain.ErrInvalidState)
	}
	if id == b.trip.Origin.ID {
		t := b.trip.Clone()
		t.Status = domain.TripStatusCancelled
		b.trip = nil
		b.mu.Unlock()
		return t, nil
	}

	i := b.trip.DestinationIndex(id)
	if i < 0 {
		b.mu.Unlock()
		return domain.Trip{}, fmt.Errorf("remove waypoint %d: %w", id, domain.ErrWaypointNotFound)
	}

	last := i == len(b.trip.Destinations)-1
	var pred, succ domain.Coordinate
	if !last {
		pred = b.trip.Origin.Coordinate
		if i > 0 {
			pred = b.trip.Destinations[i-1].Coordinate
		}
		succ = b.trip.Destinations[i+1].Coordinate
	}
	b.mu.Unlock()

	var seg *domain.Route
	if !last {
		seg = b.route(ctx, pred, succ)
	}
	rate := b.deps.Pricing.Rate(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stale(ctx, g) {
		return domain.Trip{}, fmt.Errorf("remove waypoint: %w", domain.ErrCancelled)
	}

	i = b.trip.DestinationIndex(id)
	if i < 0 {
		return domain.Trip{}, fmt.Errorf("remove waypoint %d: %w", id, domain.ErrWaypointNotFound)
	}
	b.trip.Destinations = append(b.trip.Destinations[:i], b.trip.Destinations[i+1:]...)
	b.trip.Segments = append(b.trip.Segments[:i], b.trip.Segments[i+1:]...)
	if !last {
		// the successor now sits at i; its incoming leg starts at pred
		b.trip.Segments[i] = seg
	}
	b.trip.Recompute(rate)

	return b.trip.Clone(), nil
}

// Finalize commits the trip as active and resets the builder.
func (b *TripBuilder) Finalize(ctx context.Context) (domain.Trip, error) {
	g, err := b.begin()
	if err != nil {
		return domain.Trip{}, fmt.Errorf("finalize: %w", err)
	}
	defer b.end(g)

	t, err := b.finalize(ctx, g)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("finalize: %w", err)
	}
	return t, nil
}

func (b *TripBuilder) finalize(ctx context.Context, g uint64) (domain.Trip, error) {
	b.mu.Lock()
	if b.stale(ctx, g) {
		b.mu.Unlock()
		return domain.Trip{}, domain.ErrCancelled
	}
	if b.trip == nil {
		b.mu.Unlock()
		return domain.Trip{}, domain.ErrInvalidState
	}
	if len(b.trip.Destinations) == 0 {
		b.mu.Unlock()
		return domain.Trip{}, domain.ErrNoDestinations
	}
	candidate := b.trip.Clone()
	b.mu.Unlock()

	committed, err := b.deps.Committer.Commit(ctx, candidate)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTrip) {
			b.deps.Metrics.Rejected("duplicate")
		}
		return domain.Trip{}, err
	}

	b.mu.Lock()
	if b.gen == g {
		b.trip = nil
	}
	b.mu.Unlock()

	return committed, nil
}

func (b *TripBuilder) begin() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.busy {
		b.deps.Metrics.Rejected("busy")
		return 0, domain.ErrBusy
	}
	b.busy = true
	return b.gen, nil
}

// end releases the busy flag unless a Cancel already did.
func (b *TripBuilder) end(g uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen == g {
		b.busy = false
	}
}

func (b *TripBuilder) alive(ctx context.Context, g uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stale(ctx, g) {
		return domain.ErrCancelled
	}
	return nil
}

// stale reports whether results of operation g must be discarded: the
// builder was cancelled or the caller gave up. Callers hold b.mu.
func (b *TripBuilder) stale(ctx context.Context, g uint64) bool {
	return b.gen != g || ctx.Err() != nil
}

func (b *TripBuilder) resolve(ctx context.Context, p Point) (domain.Waypoint, error) {
	if p.Coordinate != nil {
		c := *p.Coordinate
		if err := c.Validate(); err != nil {
			return domain.Waypoint{}, err
		}
		return domain.Waypoint{Coordinate: c, Address: b.deps.Geocoder.ReverseGeocode(ctx, c)}, nil
	}

	wp, err := b.deps.Geocoder.Geocode(ctx, p.Address)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Waypoint{}, fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
		}
		b.deps.Metrics.GeocodeFailed()
		return domain.Waypoint{}, fmt.Errorf("%w: %w", domain.ErrGeocodeFailure, err)
	}
	return wp, nil
}

func (b *TripBuilder) checkSeparation(prev, next domain.Coordinate) error {
	if domain.HaversineMeters(prev, next) < b.deps.MinSeparationMeters {
		b.deps.Metrics.Rejected("too_close")
		return domain.ErrTooClose
	}
	return nil
}

func (b *TripBuilder) route(ctx context.Context, from, to domain.Coordinate) *domain.Route {
	r, err := b.deps.Router.Route(ctx, from, to)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		b.deps.Metrics.RouteFailed()
		log.Printf("route failed, keeping empty segment from=%s to=%s err=%v", from, to, err)
		return nil
	}
	return &r
}
