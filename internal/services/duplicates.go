package services

import "cadete-dispatch-service/internal/domain"

// DuplicateDetector decides whether a trip repeats an active one.
type DuplicateDetector struct {
	ToleranceMeters float64
}

// Check reports whether some active trip has its origin within tolerance of
// origin and the same number of destinations, each within tolerance in order.
func (d DuplicateDetector) Check(origin domain.Coordinate, destinations []domain.Coordinate, active []domain.Trip) bool {
	for i := range active {
		if d.matches(origin, destinations, &active[i]) {
			return true
		}
	}
	return false
}

func (d DuplicateDetector) IsDuplicate(candidate *domain.Trip, active []domain.Trip) bool {
	dests := make([]domain.Coordinate, len(candidate.Destinations))
	for i, w := range candidate.Destinations {
		dests[i] = w.Coordinate
	}
	return d.Check(candidate.Origin.Coordinate, dests, active)
}

func (d DuplicateDetector) matches(origin domain.Coordinate, destinations []domain.Coordinate, t *domain.Trip) bool {
	if len(t.Destinations) != len(destinations) {
		return false
	}
	if domain.HaversineMeters(t.Origin.Coordinate, origin) >= d.ToleranceMeters {
		return false
	}
	for i, w := range t.Destinations {
		if domain.HaversineMeters(w.Coordinate, destinations[i]) >= d.ToleranceMeters {
			return false
		}
	}
	return true
}
