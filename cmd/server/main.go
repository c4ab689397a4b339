package main

import (
	"cadete-dispatch-service/internal/adapters/cache"
	"cadete-dispatch-service/internal/adapters/memory"
	"cadete-dispatch-service/internal/adapters/osm"
	"cadete-dispatch-service/internal/adapters/repositories"
	"cadete-dispatch-service/internal/api"
	"cadete-dispatch-service/internal/config"
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/platform/db"
	"cadete-dispatch-service/internal/platform/events"
	"cadete-dispatch-service/internal/platform/metrics"
	"cadete-dispatch-service/internal/platform/obs"
	"cadete-dispatch-service/internal/ports"
	"cadete-dispatch-service/internal/services"
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, NATS, Nominatim, OSRM) behind
// ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	obs.SetObserver(collector.ObserveOp)

	var (
		sqlDB *sql.DB
		repo  ports.TripRepository
		rates ports.RateSource = memory.NewRateSource(cfg.DefaultRatePerKm)
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer sqlDB.Close()

		if err := db.Migrate(sqlDB); err != nil {
			log.Fatal(err)
		}

		naming, err := repositories.NamingFor(cfg.RecordNaming)
		if err != nil {
			log.Fatal(err)
		}
		repo = repositories.NewPostgresTripRepository(sqlDB, naming)
		rates = repositories.NewPostgresSettingsStore(sqlDB, cfg.DefaultRatePerKm)
	} else {
		log.Println("DATABASE_URL not set, trips and rate are kept in memory only")
	}

	geocoder, router, closeCaches := buildProviders(ctx, cfg, sqlDB)
	defer closeCaches()

	hub := events.NewHub()
	publishers := events.Fanout{hub}
	if cfg.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, collector)
		if err != nil {
			log.Printf("nats unavailable, events go to websocket clients only err=%v", err)
		} else {
			defer natsPub.Close()
			publishers = append(publishers, natsPub)
		}
	}

	ids := &services.IDSource{}
	store := services.NewTripStore(
		services.DuplicateDetector{ToleranceMeters: cfg.DuplicateToleranceMeters},
		time.Now,
		cfg.Location,
	)
	dispatcher := services.NewDispatcher(services.DispatcherDeps{
		Store:   store,
		Repo:    repo,
		Events:  publishers,
		Metrics: collector,
		IDs:     ids,
	})
	if err := dispatcher.Restore(ctx); err != nil {
		log.Fatal(err)
	}
	go dispatcher.RunHistoryReset(ctx, cfg.HistoryCheckInterval)

	pricing := services.NewPricingPolicy(rates, cfg.DefaultRatePerKm, collector)
	sessions := services.NewSessions(services.BuilderDeps{
		Geocoder:            geocoder,
		Router:              router,
		Pricing:             pricing,
		Committer:           dispatcher,
		Palette:             domain.NewPalette(nil),
		IDs:                 ids,
		MinSeparationMeters: cfg.MinSeparationMeters,
		Metrics:             collector,
	})
	go sessions.RunEviction(ctx, cfg.SessionIdleTimeout/2, cfg.SessionIdleTimeout)

	deps := api.Deps{
		Dispatcher: dispatcher,
		Sessions:   sessions,
		Pricing:    pricing,
		Rates:      rates,
		Geocoder:   geocoder,
		Town:       cfg.Town,
		Events:     hub,
	}
	if cfg.MetricsAddr != "" {
		metricsSrv := collector.Serve(cfg.MetricsAddr)
		defer metricsSrv.Close()
	} else {
		deps.Metrics = collector.Handler()
	}

	// Write timeout covers a multi-stop manual trip on cold caches.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown failed err=%v", err)
	}
}

// buildProviders returns the geocoder and router decorated with whatever
// caches are configured. Redis is preferred for routes; Postgres is used for
// addresses and as the route fallback.
func buildProviders(ctx context.Context, cfg *config.Config, sqlDB *sql.DB) (ports.Geocoder, ports.Router, func()) {
	nominatim, err := osm.NewNominatimGeocoder(osm.NominatimConfig{
		BaseURL:      cfg.NominatimURL,
		UserAgent:    cfg.UserAgent,
		Town:         cfg.Town,
		CountryCodes: cfg.CountryCodes,
		Viewbox:      cfg.SearchViewbox,
		Timeout:      cfg.GeocodeTimeout,
	})
	if err != nil {
		log.Fatal(err)
	}
	osrm, err := osm.NewOSRMRouter(cfg.OSRMURL, cfg.UserAgent, cfg.RouteTimeout)
	if err != nil {
		log.Fatal(err)
	}

	var geocoder ports.Geocoder = nominatim
	var router ports.Router = osrm
	closeFn := func() {}

	if sqlDB != nil {
		geocoder = &cache.CachedGeocoder{Next: nominatim, Cache: cache.NewSQLGeocodeCache(sqlDB)}
	}

	switch {
	case cfg.RedisURL != "":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("redis unavailable, routes are not cached err=%v", err)
			_ = rdb.Close()
			break
		}
		router = &cache.CachedRouter{Next: osrm, Cache: cache.NewRedisRouteCache(rdb, cfg.RouteCacheTTL)}
		closeFn = func() { _ = rdb.Close() }
	case sqlDB != nil:
		router = &cache.CachedRouter{Next: osrm, Cache: cache.NewSQLRouteCache(sqlDB)}
	}

	return geocoder, router, closeFn
}
