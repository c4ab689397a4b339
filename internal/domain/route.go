package domain

// Road route between two consecutive waypoints of a trip.
// A trip stores segments as *Route; a nil segment marks a leg whose routing
// failed and counts as zero distance with no polyline.
type Route struct {
	Polyline        []Coordinate
	DistanceMeters  float64
	DurationSeconds float64
}

func (r *Route) clone() *Route {
	if r == nil {
		return nil
	}
	out := *r
	out.Polyline = append([]Coordinate(nil), r.Polyline...)
	return &out
}
