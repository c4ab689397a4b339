package api

import (
	"cadete-dispatch-service/internal/api/handlers"
	"cadete-dispatch-service/internal/ports"
	"cadete-dispatch-service/internal/services"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Dispatcher *services.Dispatcher
	Sessions   *services.Sessions
	Pricing    *services.PricingPolicy
	Rates      ports.RateSource
	Geocoder   ports.Geocoder
	Town       string

	// Optional.
	Metrics http.Handler
	Events  http.Handler
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	sessions := &handlers.SessionHandler{Sessions: deps.Sessions}
	trips := &handlers.TripHandler{Dispatcher: deps.Dispatcher, Sessions: deps.Sessions, Town: deps.Town}
	stats := &handlers.StatsHandler{Store: deps.Dispatcher.Store()}
	settings := &handlers.SettingsHandler{Rates: deps.Rates, Pricing: deps.Pricing}
	quotes := &handlers.QuoteHandler{Geocoder: deps.Geocoder, Pricing: deps.Pricing}

	r.Get("/health", handlers.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	if deps.Events != nil {
		r.Method(http.MethodGet, "/ws/trips", deps.Events)
	}

	r.Route("/sessions", func(s chi.Router) {
		s.Post("/", sessions.Create)
		s.Route("/{sid}", func(s chi.Router) {
			s.Get("/", sessions.Get)
			s.Delete("/", sessions.Close)
			s.Post("/origin", sessions.AddOrigin)
			s.Post("/destinations", sessions.AddDestination)
			s.Delete("/waypoints/{wid}", sessions.RemoveWaypoint)
			s.Post("/finalize", sessions.Finalize)
			s.Post("/cancel", sessions.Cancel)
		})
	})

	r.Route("/trips", func(t chi.Router) {
		t.Get("/", trips.List)
		t.Post("/manual", trips.Manual)
		t.Get("/history", trips.History)
		t.Route("/{id}", func(t chi.Router) {
			t.Get("/", trips.Get)
			t.Delete("/", trips.Delete)
			t.Post("/complete", trips.Complete)
			t.Delete("/waypoints/{wid}", trips.RemoveWaypoint)
			t.Get("/geojson", trips.GeoJSON)
			t.Get("/navigation", trips.Navigation)
		})
	})

	r.Get("/stats/today", stats.Today)
	r.Get("/settings/rate", settings.GetRate)
	r.Put("/settings/rate", settings.PutRate)
	r.Post("/quotes", quotes.Create)

	return r
}
