package services

import (
	"cadete-dispatch-service/internal/adapters/memory"
	"cadete-dispatch-service/internal/adapters/osm"
	"cadete-dispatch-service/internal/domain"
	"time"
)

var (
	pO = domain.Coordinate{Lat: -33.0141, Lng: -58.5071}
	pA = domain.Coordinate{Lat: -33.0241, Lng: -58.4971}
	pB = domain.Coordinate{Lat: -33.0341, Lng: -58.4871}
	pC = domain.Coordinate{Lat: -33.0441, Lng: -58.4771}
)

type fixture struct {
	geo        *osm.MockGeocoder
	router     *osm.MockRouter
	rates      *memory.RateSource
	store      *TripStore
	dispatcher *Dispatcher
	deps       BuilderDeps
	now        time.Time
}

func newFixture() *fixture {
	f := &fixture{
		geo: osm.NewMockGeocoder(map[string]domain.Coordinate{
			"Origen 1":  pO,
			"Destino A": pA,
			"Destino B": pB,
			"Destino C": pC,
		}),
		router: osm.NewMockRouter(),
		rates:  memory.NewRateSource(500),
		now:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.store = NewTripStore(DuplicateDetector{ToleranceMeters: 10}, clock, time.UTC)
	ids := &IDSource{}
	f.dispatcher = NewDispatcher(DispatcherDeps{Store: f.store, IDs: ids, Now: clock})
	f.deps = BuilderDeps{
		Geocoder:            f.geo,
		Router:              f.router,
		Pricing:             NewPricingPolicy(f.rates, 500, nil),
		Committer:           f.dispatcher,
		Palette:             domain.NewPalette(nil),
		IDs:                 ids,
		Now:                 clock,
		MinSeparationMeters: 50,
	}
	return f
}

func (f *fixture) builder(mode Mode) *TripBuilder {
	return NewTripBuilder(mode, f.deps)
}

func offset(c domain.Coordinate, meters float64) domain.Coordinate {
	// ~111,195 m per degree of latitude
	return domain.Coordinate{Lat: c.Lat + meters/111195, Lng: c.Lng}
}
