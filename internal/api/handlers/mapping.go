package handlers

import (
	"cadete-dispatch-service/internal/api/dto"
	"cadete-dispatch-service/internal/domain"
)

func toWaypointResponse(w domain.Waypoint) dto.WaypointResponse {
	return dto.WaypointResponse{ID: w.ID, Lat: w.Coordinate.Lat, Lng: w.Coordinate.Lng, Address: w.Address}
}

func toTripResponse(t domain.Trip) dto.TripResponse {
	res := dto.TripResponse{
		ID:                  t.ID,
		Status:              string(t.Status),
		Color:               t.Color,
		Origin:              toWaypointResponse(t.Origin),
		Destinations:        make([]dto.WaypointResponse, 0, len(t.Destinations)),
		Segments:            make([]*dto.SegmentResponse, len(t.Segments)),
		TotalDistanceMeters: t.TotalDistanceMeters,
		TotalDistanceKm:     t.TotalDistanceKm(),
		Price:               t.Price,
		RatePerKm:           t.RatePerKm,
		RouteFailures:       t.RouteFailures(),
		CreatedAt:           t.CreatedAt,
		CompletedAt:         t.CompletedAt,
	}
	for _, d := range t.Destinations {
		res.Destinations = append(res.Destinations, toWaypointResponse(d))
	}
	for i, s := range t.Segments {
		if s == nil {
			continue
		}
		poly := make([]dto.CoordinateResponse, len(s.Polyline))
		for j, p := range s.Polyline {
			poly[j] = dto.CoordinateResponse{Lat: p.Lat, Lng: p.Lng}
		}
		res.Segments[i] = &dto.SegmentResponse{
			DistanceMeters:  s.DistanceMeters,
			DurationSeconds: s.DurationSeconds,
			Polyline:        poly,
		}
	}
	return res
}

func toListTripsResponse(trips []domain.Trip) dto.ListTripsResponse {
	res := dto.ListTripsResponse{Trips: make([]dto.TripResponse, 0, len(trips))}
	for _, t := range trips {
		res.Trips = append(res.Trips, toTripResponse(t))
	}
	return res
}
