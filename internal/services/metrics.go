package services

// Metrics is the subset of the platform collector the services report to.
type Metrics interface {
	TripFinalized()
	TripCompleted()
	TripDeleted()
	HistoryReset()
	Rejected(reason string)
	GeocodeFailed()
	RouteFailed()
	RateUsed(rate float64)
	SetTripCounts(active, history int)
}

type nopMetrics struct{}

func (nopMetrics) TripFinalized()         {}
func (nopMetrics) TripCompleted()         {}
func (nopMetrics) TripDeleted()           {}
func (nopMetrics) HistoryReset()          {}
func (nopMetrics) Rejected(string)        {}
func (nopMetrics) GeocodeFailed()         {}
func (nopMetrics) RouteFailed()           {}
func (nopMetrics) RateUsed(float64)       {}
func (nopMetrics) SetTripCounts(int, int) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
