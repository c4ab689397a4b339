package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveTrips  prometheus.Gauge
	HistoryTrips prometheus.Gauge

	TripsFinalized prometheus.Counter
	TripsCompleted prometheus.Counter
	TripsDeleted   prometheus.Counter
	HistoryResets  prometheus.Counter

	Rejections      *prometheus.CounterVec // reason label: too_close|duplicate|busy
	GeocodeFailures prometheus.Counter
	RouteFailures   prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	OpDuration *prometheus.HistogramVec // op label, result label: ok|error

	RatePerKm prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_active_trips",
			Help: "Number of trips currently active.",
		}),
		HistoryTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_history_trips",
			Help: "Number of trips completed since the last daily reset.",
		}),
		TripsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_trips_finalized_total",
			Help: "Total trips finalized into the active list.",
		}),
		TripsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_trips_completed_total",
			Help: "Total trips moved to history.",
		}),
		TripsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_trips_deleted_total",
			Help: "Total active trips deleted.",
		}),
		HistoryResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_history_resets_total",
			Help: "Total daily history resets.",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_builder_rejections_total",
			Help: "Builder operations rejected, by reason.",
		}, []string{"reason"}),
		GeocodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_geocode_failures_total",
			Help: "Addresses that could not be resolved.",
		}),
		RouteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_route_failures_total",
			Help: "Segments stored without a route.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_op_duration_seconds",
			Help:    "Duration of timed operations (outbound calls, storage).",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"op", "result"}),
		RatePerKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_rate_per_km",
			Help: "Last rate per km used for pricing.",
		}),
	}

	reg.MustRegister(
		c.ActiveTrips, c.HistoryTrips,
		c.TripsFinalized, c.TripsCompleted, c.TripsDeleted, c.HistoryResets,
		c.Rejections, c.GeocodeFailures, c.RouteFailures,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.OpDuration, c.RatePerKm,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// ObserveOp matches obs.Observer.
func (c *Collector) ObserveOp(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.OpDuration.WithLabelValues(op, result).Observe(d.Seconds())
}

func (c *Collector) TripFinalized()         { c.TripsFinalized.Inc() }
func (c *Collector) TripCompleted()         { c.TripsCompleted.Inc() }
func (c *Collector) TripDeleted()           { c.TripsDeleted.Inc() }
func (c *Collector) HistoryReset()          { c.HistoryResets.Inc() }
func (c *Collector) Rejected(reason string) { c.Rejections.WithLabelValues(reason).Inc() }
func (c *Collector) GeocodeFailed()         { c.GeocodeFailures.Inc() }
func (c *Collector) RouteFailed()           { c.RouteFailures.Inc() }
func (c *Collector) RateUsed(rate float64)  { c.RatePerKm.Set(rate) }
func (c *Collector) NATSPublishedInc()      { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()     { c.NATSPublishErrs.Inc() }

func (c *Collector) SetTripCounts(active, history int) {
	c.ActiveTrips.Set(float64(active))
	c.HistoryTrips.Set(float64(history))
}

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
