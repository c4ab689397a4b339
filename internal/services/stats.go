package services

type TodayStats struct {
	ActiveToday    int
	CompletedToday int
	DistanceKm     float64
	EarningsToday  float64
	RouteFailures  int
}

// Today summarizes the store for the current local day. History only ever
// holds the current day's trips.
func Today(s *TripStore) TodayStats {
	st := TodayStats{ActiveToday: s.ActiveTodayCount()}
	for _, t := range s.History() {
		st.CompletedToday++
		st.DistanceKm += t.TotalDistanceKm()
		st.EarningsToday += t.Price
		st.RouteFailures += t.RouteFailures()
	}
	return st
}
