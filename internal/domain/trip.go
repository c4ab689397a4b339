package domain

import "time"

type TripStatus string

const (
	TripStatusBuilding  TripStatus = "building"
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Waypoint is a resolved point of a trip. ID is local to the trip and is
// the handle map markers use to refer back to it.
type Waypoint struct {
	ID         int
	Coordinate Coordinate
	Address    string
}

// Trip is an ordered origin plus one or more destinations.
//
// Segments[i] is the road route arriving at Destinations[i] (from the origin
// for i == 0), so len(Segments) == len(Destinations) always holds.
// TotalDistanceMeters and Price are derived from Segments by Recompute.
type Trip struct {
	ID                  int64
	Origin              Waypoint
	Destinations        []Waypoint
	Segments            []*Route
	TotalDistanceMeters float64
	Price               float64
	RatePerKm           float64
	Status              TripStatus
	Color               string
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

func (t *Trip) TotalDistanceKm() float64 { return t.TotalDistanceMeters / 1000 }

// Recompute sums segment distances and prices the result at ratePerKm.
func (t *Trip) Recompute(ratePerKm float64) {
	total := 0.0
	for _, s := range t.Segments {
		if s != nil {
			total += s.DistanceMeters
		}
	}
	t.TotalDistanceMeters = total
	t.RatePerKm = ratePerKm
	t.Price = Price(t.TotalDistanceKm(), ratePerKm)
}

// Waypoints returns origin followed by destinations.
func (t *Trip) Waypoints() []Waypoint {
	out := make([]Waypoint, 0, len(t.Destinations)+1)
	out = append(out, t.Origin)
	return append(out, t.Destinations...)
}

// Last returns the most recently added point of the trip.
func (t *Trip) Last() Waypoint {
	if len(t.Destinations) == 0 {
		return t.Origin
	}
	return t.Destinations[len(t.Destinations)-1]
}

// DestinationIndex returns the position of waypoint id among destinations, or -1.
func (t *Trip) DestinationIndex(id int) int {
	for i, d := range t.Destinations {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// NextWaypointID returns an id not yet used by any waypoint of the trip.
func (t *Trip) NextWaypointID() int {
	hi := t.Origin.ID
	for _, d := range t.Destinations {
		if d.ID > hi {
			hi = d.ID
		}
	}
	return hi + 1
}

// RouteFailures counts segments whose routing failed.
func (t *Trip) RouteFailures() int {
	n := 0
	for _, s := range t.Segments {
		if s == nil {
			n++
		}
	}
	return n
}

func (t *Trip) Clone() Trip {
	out := *t
	out.Destinations = append([]Waypoint(nil), t.Destinations...)
	out.Segments = make([]*Route, len(t.Segments))
	for i, s := range t.Segments {
		out.Segments[i] = s.clone()
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		out.CompletedAt = &c
	}
	return out
}
