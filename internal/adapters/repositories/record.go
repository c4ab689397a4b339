package repositories

import (
	"cadete-dispatch-service/internal/domain"
	"encoding/json"
	"fmt"
	"time"
)

type waypointJSON struct {
	ID      int     `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type segmentJSON struct {
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	Polyline        [][2]float64 `json:"polyline"`
}

// tripRecord is the flat row shape of a trip.
type tripRecord struct {
	ID                  int64
	OriginLat           float64
	OriginLng           float64
	OriginAddress       string
	DestinationAddress  string
	Destinations        []byte
	Segments            []byte
	TotalDistanceMeters float64
	Price               float64
	RatePerKm           float64
	Status              string
	Color               string
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

func toRecord(t *domain.Trip) (tripRecord, error) {
	dests := make([]waypointJSON, len(t.Destinations))
	addrs := make([]string, len(t.Destinations))
	for i, d := range t.Destinations {
		dests[i] = waypointJSON{ID: d.ID, Lat: d.Coordinate.Lat, Lng: d.Coordinate.Lng, Address: d.Address}
		addrs[i] = d.Address
	}

	segs := make([]*segmentJSON, len(t.Segments))
	for i, s := range t.Segments {
		if s == nil {
			continue
		}
		poly := make([][2]float64, len(s.Polyline))
		for j, p := range s.Polyline {
			poly[j] = [2]float64{p.Lat, p.Lng}
		}
		segs[i] = &segmentJSON{DistanceMeters: s.DistanceMeters, DurationSeconds: s.DurationSeconds, Polyline: poly}
	}

	destAddr, err := EncodeDestinationAddress(addrs)
	if err != nil {
		return tripRecord{}, err
	}
	destJSON, err := json.Marshal(dests)
	if err != nil {
		return tripRecord{}, fmt.Errorf("encode destinations: %w", err)
	}
	segJSON, err := json.Marshal(segs)
	if err != nil {
		return tripRecord{}, fmt.Errorf("encode segments: %w", err)
	}

	return tripRecord{
		ID:                  t.ID,
		OriginLat:           t.Origin.Coordinate.Lat,
		OriginLng:           t.Origin.Coordinate.Lng,
		OriginAddress:       t.Origin.Address,
		DestinationAddress:  destAddr,
		Destinations:        destJSON,
		Segments:            segJSON,
		TotalDistanceMeters: t.TotalDistanceMeters,
		Price:               t.Price,
		RatePerKm:           t.RatePerKm,
		Status:              string(t.Status),
		Color:               t.Color,
		CreatedAt:           t.CreatedAt,
		CompletedAt:         t.CompletedAt,
	}, nil
}

func fromRecord(r tripRecord) (domain.Trip, error) {
	var dests []waypointJSON
	if err := json.Unmarshal(r.Destinations, &dests); err != nil {
		return domain.Trip{}, fmt.Errorf("decode destinations of trip %d: %w", r.ID, err)
	}
	var segs []*segmentJSON
	if err := json.Unmarshal(r.Segments, &segs); err != nil {
		return domain.Trip{}, fmt.Errorf("decode segments of trip %d: %w", r.ID, err)
	}

	// Rows written by other clients may carry addresses only in the column.
	addrs := DecodeDestinationAddress(r.DestinationAddress)

	t := domain.Trip{
		ID:                  r.ID,
		Origin:              domain.Waypoint{ID: 0, Coordinate: domain.Coordinate{Lat: r.OriginLat, Lng: r.OriginLng}, Address: r.OriginAddress},
		Destinations:        make([]domain.Waypoint, len(dests)),
		Segments:            make([]*domain.Route, len(dests)),
		TotalDistanceMeters: r.TotalDistanceMeters,
		Price:               r.Price,
		RatePerKm:           r.RatePerKm,
		Status:              domain.TripStatus(r.Status),
		Color:               r.Color,
		CreatedAt:           r.CreatedAt,
		CompletedAt:         r.CompletedAt,
	}
	for i, d := range dests {
		addr := d.Address
		if addr == "" && i < len(addrs) {
			addr = addrs[i]
		}
		t.Destinations[i] = domain.Waypoint{ID: d.ID, Coordinate: domain.Coordinate{Lat: d.Lat, Lng: d.Lng}, Address: addr}
	}
	for i := 0; i < len(segs) && i < len(dests); i++ {
		s := segs[i]
		if s == nil {
			continue
		}
		poly := make([]domain.Coordinate, len(s.Polyline))
		for j, p := range s.Polyline {
			poly[j] = domain.Coordinate{Lat: p[0], Lng: p[1]}
		}
		t.Segments[i] = &domain.Route{Polyline: poly, DistanceMeters: s.DistanceMeters, DurationSeconds: s.DurationSeconds}
	}

	return t, nil
}
