package services

import (
	"cadete-dispatch-service/internal/domain"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

func assertSegmentsMatchDestinations(t *testing.T, trip domain.Trip) {
	t.Helper()
	if len(trip.Segments) != len(trip.Destinations) {
		t.Fatalf("segments = %d, destinations = %d", len(trip.Segments), len(trip.Destinations))
	}
}

func TestTripBuilderSimpleTrip(t *testing.T) {
	f := newFixture()
	f.router.Set(pO, pA, 2500)
	b := f.builder(ModeMulti)
	ctx := context.Background()

	if _, err := b.AddOrigin(ctx, AtAddress("Origen 1")); err != nil {
		t.Fatalf("add origin: %v", err)
	}
	trip, err := b.AddDestination(ctx, AtCoordinate(pA))
	if err != nil {
		t.Fatalf("add destination: %v", err)
	}

	assertSegmentsMatchDestinations(t, trip)
	if len(trip.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(trip.Segments))
	}
	if trip.TotalDistanceMeters != 2500 {
		t.Fatalf("distance = %v, want 2500", trip.TotalDistanceMeters)
	}
	if trip.Price != 2.5*500 {
		t.Fatalf("price = %v, want 1250", trip.Price)
	}
	if trip.Destinations[0].Address != "Destino A" {
		t.Fatalf("destination label = %q, want reverse geocoded label", trip.Destinations[0].Address)
	}

	final, err := b.Finalize(ctx)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Status != domain.TripStatusActive {
		t.Fatalf("status = %q, want active", final.Status)
	}
	if _, ok := b.Snapshot(); ok {
		t.Fatalf("builder should be empty after finalize")
	}
	if got := len(f.store.Active()); got != 1 {
		t.Fatalf("active trips = %d, want 1", got)
	}
}

func TestTripBuilderPriceUsesRateAtBuildTime(t *testing.T) {
	f := newFixture()
	f.router.Set(pO, pA, 1000)
	f.router.Set(pA, pB, 1000)
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	b.AddDestination(ctx, AtCoordinate(pA))
	f.rates.SetRatePerKm(ctx, 800)
	trip, err := b.AddDestination(ctx, AtCoordinate(pB))
	if err != nil {
		t.Fatalf("add destination: %v", err)
	}

	if trip.Price != 2*800 {
		t.Fatalf("price = %v, want %v", trip.Price, 2*800.0)
	}
	if trip.RatePerKm != 800 {
		t.Fatalf("rate = %v, want 800", trip.RatePerKm)
	}
}

func TestTripBuilderRemoveIntermediateDestination(t *testing.T) {
	f := newFixture()
	f.router.Set(pO, pA, 1000)
	f.router.Set(pA, pB, 1500)
	f.router.Set(pB, pC, 2000)
	f.router.Set(pA, pC, 2600)
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	b.AddDestination(ctx, AtCoordinate(pA))
	b.AddDestination(ctx, AtCoordinate(pB))
	before, err := b.AddDestination(ctx, AtCoordinate(pC))
	if err != nil {
		t.Fatalf("add destination: %v", err)
	}
	if before.TotalDistanceMeters != 4500 {
		t.Fatalf("distance before = %v, want 4500", before.TotalDistanceMeters)
	}

	idB := before.Destinations[1].ID
	trip, err := b.RemoveWaypoint(ctx, idB)
	if err != nil {
		t.Fatalf("remove waypoint: %v", err)
	}

	assertSegmentsMatchDestinations(t, trip)
	if len(trip.Destinations) != 2 {
		t.Fatalf("destinations = %d, want 2", len(trip.Destinations))
	}
	if trip.Segments[0].DistanceMeters != 1000 {
		t.Fatalf("first segment = %v, want unchanged 1000", trip.Segments[0].DistanceMeters)
	}
	if trip.Segments[1].DistanceMeters != 2600 {
		t.Fatalf("second segment = %v, want re-routed A->C 2600", trip.Segments[1].DistanceMeters)
	}
	if trip.TotalDistanceMeters != 3600 {
		t.Fatalf("distance = %v, want 3600", trip.TotalDistanceMeters)
	}
	if trip.Segments[1].Polyline[0] != pA || trip.Segments[1].Polyline[1] != pC {
		t.Fatalf("second segment polyline = %v, want A->C", trip.Segments[1].Polyline)
	}
}

func TestTripBuilderRemoveFirstDestinationReroutesFromOrigin(t *testing.T) {
	f := newFixture()
	f.router.Set(pO, pA, 1000)
	f.router.Set(pA, pB, 1500)
	f.router.Set(pO, pB, 2200)
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	first, _ := b.AddDestination(ctx, AtCoordinate(pA))
	b.AddDestination(ctx, AtCoordinate(pB))

	trip, err := b.RemoveWaypoint(ctx, first.Destinations[0].ID)
	if err != nil {
		t.Fatalf("remove waypoint: %v", err)
	}
	if len(trip.Segments) != 1 || trip.Segments[0].DistanceMeters != 2200 {
		t.Fatalf("segments = %+v, want single O->B of 2200", trip.Segments)
	}
}

func TestTripBuilderRemoveTerminalDestination(t *testing.T) {
	f := newFixture()
	f.router.Set(pO, pA, 1000)
	f.router.Set(pA, pB, 1500)
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	b.AddDestination(ctx, AtCoordinate(pA))
	before, _ := b.AddDestination(ctx, AtCoordinate(pB))
	calls := f.router.Calls

	trip, err := b.RemoveWaypoint(ctx, before.Destinations[1].ID)
	if err != nil {
		t.Fatalf("remove waypoint: %v", err)
	}
	assertSegmentsMatchDestinations(t, trip)
	if trip.TotalDistanceMeters != 1000 {
		t.Fatalf("distance = %v, want 1000", trip.TotalDistanceMeters)
	}
	if f.router.Calls != calls {
		t.Fatalf("router called %d times, want no routing for terminal removal", f.router.Calls-calls)
	}
}

func TestTripBuilderRemoveOriginCancels(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)
	ctx := context.Background()

	start, _ := b.AddOrigin(ctx, AtCoordinate(pO))
	b.AddDestination(ctx, AtCoordinate(pA))
	b.AddDestination(ctx, AtCoordinate(pB))

	trip, err := b.RemoveWaypoint(ctx, start.Origin.ID)
	if err != nil {
		t.Fatalf("remove origin: %v", err)
	}
	if trip.Status != domain.TripStatusCancelled {
		t.Fatalf("status = %q, want cancelled", trip.Status)
	}
	if _, ok := b.Snapshot(); ok {
		t.Fatalf("builder still holds a trip after origin removal")
	}

	// the builder is reusable afterwards
	if _, err := b.AddOrigin(ctx, AtCoordinate(pB)); err != nil {
		t.Fatalf("add origin after cancel: %v", err)
	}
}

func TestTripBuilderRejectsTooClosePoint(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	before, _ := b.AddDestination(ctx, AtCoordinate(pA))
	geoCalls := f.geo.Calls

	_, err := b.AddDestination(ctx, AtCoordinate(offset(pA, 30)))
	if !errors.Is(err, domain.ErrTooClose) {
		t.Fatalf("err = %v, want ErrTooClose", err)
	}
	if f.geo.Calls != geoCalls {
		t.Fatalf("reverse geocode called for a rejected click")
	}

	after, _ := b.Snapshot()
	if len(after.Destinations) != len(before.Destinations) ||
		len(after.Segments) != len(before.Segments) ||
		after.TotalDistanceMeters != before.TotalDistanceMeters ||
		after.Price != before.Price {
		t.Fatalf("state changed after rejection: before=%+v after=%+v", before, after)
	}

	// just past the threshold is accepted
	if _, err := b.AddDestination(ctx, AtCoordinate(offset(pA, 60))); err != nil {
		t.Fatalf("add destination at 60m: %v", err)
	}
}

func TestTripBuilderRoutingOutage(t *testing.T) {
	f := newFixture()
	f.router.Set(pO, pA, 1000)
	f.router.Fail(pA, pB)
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	b.AddDestination(ctx, AtCoordinate(pA))
	trip, err := b.AddDestination(ctx, AtCoordinate(pB))
	if err != nil {
		t.Fatalf("add destination with routing outage: %v", err)
	}

	assertSegmentsMatchDestinations(t, trip)
	if trip.Segments[1] != nil {
		t.Fatalf("last segment = %+v, want nil", trip.Segments[1])
	}
	if trip.TotalDistanceMeters != 1000 {
		t.Fatalf("distance = %v, want 1000", trip.TotalDistanceMeters)
	}
	if len(trip.Destinations) != 2 {
		t.Fatalf("destinations = %d, want 2", len(trip.Destinations))
	}
}

func TestTripBuilderGeocodeFailure(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)
	ctx := context.Background()

	_, err := b.AddOrigin(ctx, AtAddress("Calle Inexistente 999"))
	if !errors.Is(err, domain.ErrGeocodeFailure) {
		t.Fatalf("err = %v, want ErrGeocodeFailure", err)
	}
	if _, ok := b.Snapshot(); ok {
		t.Fatalf("trip created despite geocode failure")
	}
}

func TestTripBuilderDuplicateRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.builder(ModeMulti)
	first.AddOrigin(ctx, AtCoordinate(pO))
	first.AddDestination(ctx, AtCoordinate(pA))
	if _, err := first.Finalize(ctx); err != nil {
		t.Fatalf("finalize first: %v", err)
	}

	second := f.builder(ModeMulti)
	second.AddOrigin(ctx, AtCoordinate(offset(pO, 5)))
	second.AddDestination(ctx, AtCoordinate(offset(pA, 5)))
	_, err := second.Finalize(ctx)
	if !errors.Is(err, domain.ErrDuplicateTrip) {
		t.Fatalf("err = %v, want ErrDuplicateTrip", err)
	}
	if got := len(f.store.Active()); got != 1 {
		t.Fatalf("active trips = %d, want 1", got)
	}
	if _, ok := second.Snapshot(); !ok {
		t.Fatalf("rejected trip should stay in the builder")
	}
}

func TestTripBuilderSingleModeAutoFinalizes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b := f.builder(ModeSingle)
	b.AddOrigin(ctx, AtCoordinate(pO))
	trip, err := b.AddDestination(ctx, AtCoordinate(pA))
	if err != nil {
		t.Fatalf("add destination: %v", err)
	}
	if trip.Status != domain.TripStatusActive {
		t.Fatalf("status = %q, want active", trip.Status)
	}
	if _, ok := b.Snapshot(); ok {
		t.Fatalf("builder should reset after auto-finalize")
	}

	// same trip again: rejected, destination rolled back, origin kept
	b.AddOrigin(ctx, AtCoordinate(pO))
	_, err = b.AddDestination(ctx, AtCoordinate(pA))
	if !errors.Is(err, domain.ErrDuplicateTrip) {
		t.Fatalf("err = %v, want ErrDuplicateTrip", err)
	}
	pending, ok := b.Snapshot()
	if !ok || len(pending.Destinations) != 0 || len(pending.Segments) != 0 {
		t.Fatalf("pending trip = %+v, want origin only", pending)
	}
	if pending.TotalDistanceMeters != 0 {
		t.Fatalf("distance = %v, want 0", pending.TotalDistanceMeters)
	}
}

func TestTripBuilderStateErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.builder(ModeMulti)

	if _, err := b.AddDestination(ctx, AtCoordinate(pA)); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("destination before origin: err = %v, want ErrInvalidState", err)
	}
	if _, err := b.Finalize(ctx); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("finalize empty: err = %v, want ErrInvalidState", err)
	}

	b.AddOrigin(ctx, AtCoordinate(pO))
	if _, err := b.AddOrigin(ctx, AtCoordinate(pA)); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second origin: err = %v, want ErrInvalidState", err)
	}
	if _, err := b.Finalize(ctx); !errors.Is(err, domain.ErrNoDestinations) {
		t.Fatalf("finalize without destinations: err = %v, want ErrNoDestinations", err)
	}
	if _, err := b.RemoveWaypoint(ctx, 99); !errors.Is(err, domain.ErrWaypointNotFound) {
		t.Fatalf("remove unknown: err = %v, want ErrWaypointNotFound", err)
	}
}

func TestTripBuilderBusyAndCancel(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.geo.Hook = func(context.Context) {
		once.Do(func() { close(entered) })
		<-release
	}

	errc := make(chan error, 1)
	go func() {
		_, err := b.AddOrigin(ctx, AtCoordinate(pO))
		errc <- err
	}()
	<-entered

	if _, err := b.AddOrigin(ctx, AtCoordinate(pA)); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("concurrent op: err = %v, want ErrBusy", err)
	}

	b.Cancel()
	close(release)

	if err := <-errc; !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("in-flight op: err = %v, want ErrCancelled", err)
	}
	if _, ok := b.Snapshot(); ok {
		t.Fatalf("cancelled operation left a trip behind")
	}

	// a fresh operation is accepted after cancel
	if _, err := b.AddOrigin(ctx, AtCoordinate(pO)); err != nil {
		t.Fatalf("add origin after cancel: %v", err)
	}
}

func TestTripBuilderInvariantsOverEdits(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	pts := []domain.Coordinate{pA, pB, pC, offset(pC, 900), offset(pC, 1800)}
	var ids []int
	for _, p := range pts {
		trip, err := b.AddDestination(ctx, AtCoordinate(p))
		if err != nil {
			t.Fatalf("add destination %v: %v", p, err)
		}
		assertSegmentsMatchDestinations(t, trip)
		ids = append(ids, trip.Destinations[len(trip.Destinations)-1].ID)
	}

	for _, id := range []int{ids[2], ids[0], ids[4]} {
		trip, err := b.RemoveWaypoint(ctx, id)
		if err != nil {
			t.Fatalf("remove %d: %v", id, err)
		}
		assertSegmentsMatchDestinations(t, trip)

		sum := 0.0
		for _, s := range trip.Segments {
			if s != nil {
				sum += s.DistanceMeters
			}
		}
		if math.Abs(trip.TotalDistanceMeters-sum) > 1e-9 {
			t.Fatalf("total = %v, want sum of segments %v", trip.TotalDistanceMeters, sum)
		}
		if math.Abs(trip.Price-sum/1000*500) > 1e-9 {
			t.Fatalf("price = %v, want %v", trip.Price, sum/1000*500)
		}
	}
}

func TestTripBuilderCancelDuringRouting(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)
	ctx := context.Background()

	if _, err := b.AddOrigin(ctx, AtCoordinate(pO)); err != nil {
		t.Fatalf("add origin: %v", err)
	}

	// geocode has already resolved "Destino A" when the route starts
	geoCalls := f.geo.Calls
	f.router.Hook = func(context.Context) { b.Cancel() }

	_, err := b.AddDestination(ctx, AtAddress("Destino A"))
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if trip, ok := b.Snapshot(); ok {
		t.Fatalf("cancelled builder holds trip with %d destinations, %d segments", len(trip.Destinations), len(trip.Segments))
	}
	if f.geo.Calls-geoCalls != 1 || f.router.Calls != 1 {
		t.Fatalf("calls geo=%d router=%d, want 1 and 1", f.geo.Calls-geoCalls, f.router.Calls)
	}
}

func TestTripBuilderCallerAbortDiscardsResults(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)

	if _, err := b.AddOrigin(context.Background(), AtCoordinate(pO)); err != nil {
		t.Fatalf("add origin: %v", err)
	}

	// the caller's deadline passes while the leg is being routed
	ctx, cancel := context.WithCancel(context.Background())
	f.router.Fail(pO, pA)
	f.router.Hook = func(context.Context) { cancel() }

	_, err := b.AddDestination(ctx, AtCoordinate(pA))
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	trip, ok := b.Snapshot()
	if !ok || len(trip.Destinations) != 0 || len(trip.Segments) != 0 {
		t.Fatalf("trip = %+v, want origin only", trip)
	}

	// the builder is free again and the origin is intact
	f.router.Hook = nil
	trip, err = b.AddDestination(context.Background(), AtCoordinate(pB))
	if err != nil {
		t.Fatalf("add destination after abort: %v", err)
	}
	if trip.Segments[0] == nil || trip.TotalDistanceMeters == 0 {
		t.Fatalf("trip = %+v, want a routed leg", trip)
	}

	ctx, cancel = context.WithCancel(context.Background())
	f.router.Hook = func(context.Context) { cancel() }
	if _, err := b.AddDestination(ctx, AtCoordinate(pC)); !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if trip, _ := b.Snapshot(); len(trip.Destinations) != 1 {
		t.Fatalf("destinations = %d, want 1", len(trip.Destinations))
	}
}

func TestTripBuilderCallerAbortDuringGeocode(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)

	ctx, cancel := context.WithCancel(context.Background())
	f.geo.Hook = func(context.Context) { cancel() }

	// unknown address: the lookup fails because the caller left, not because
	// the address does not exist
	if _, err := b.AddOrigin(ctx, AtAddress("Calle Falsa 123")); !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if _, ok := b.Snapshot(); ok {
		t.Fatalf("aborted origin left a trip behind")
	}
}

func TestTripBuilderCallerAbortDuringRemove(t *testing.T) {
	f := newFixture()
	b := f.builder(ModeMulti)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	b.AddDestination(ctx, AtCoordinate(pA))
	trip, _ := b.AddDestination(ctx, AtCoordinate(pB))
	first := trip.Destinations[0].ID

	abort, cancel := context.WithCancel(context.Background())
	f.router.Hook = func(context.Context) { cancel() }
	if _, err := b.RemoveWaypoint(abort, first); !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if got, _ := b.Snapshot(); len(got.Destinations) != 2 || got.TotalDistanceMeters != trip.TotalDistanceMeters {
		t.Fatalf("trip = %+v, want unchanged", got)
	}
}

func TestTripBuilderSingleModeRollsBackOnCommitFailure(t *testing.T) {
	f := newFixture()
	repo := &fakeRepo{createErr: errors.New("db down")}
	f.deps.Committer = NewDispatcher(DispatcherDeps{Store: f.store, Repo: repo, IDs: f.deps.IDs, Now: f.deps.Now})
	b := f.builder(ModeSingle)
	ctx := context.Background()

	b.AddOrigin(ctx, AtCoordinate(pO))
	if _, err := b.AddDestination(ctx, AtCoordinate(pA)); err == nil {
		t.Fatalf("add destination with failing store: err = nil")
	}
	pending, ok := b.Snapshot()
	if !ok || len(pending.Destinations) != 0 || len(pending.Segments) != 0 {
		t.Fatalf("pending trip = %+v, want origin only", pending)
	}
	if got := len(f.store.Active()); got != 0 {
		t.Fatalf("active trips = %d, want 0", got)
	}

	// once storage recovers the same session can retry
	repo.createErr = nil
	trip, err := b.AddDestination(ctx, AtCoordinate(pA))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if trip.Status != domain.TripStatusActive {
		t.Fatalf("status = %q, want active", trip.Status)
	}
}
