package repositories

import (
	"cadete-dispatch-service/internal/domain"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

type SeedPoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// TripSeed is a demo trip. Segment distances are straight legs with no polyline.
type TripSeed struct {
	Origin        SeedPoint   `json:"origin"`
	Destinations  []SeedPoint `json:"destinations"`
	SegmentMeters []float64   `json:"segment_meters"`
	RatePerKm     float64     `json:"rate_per_km"`
	Status        string      `json:"status"`
	Color         string      `json:"color"`
	MinutesAgo    int         `json:"minutes_ago"`
}

type Seed struct {
	RatePerKm float64    `json:"rate_per_km"`
	Trips     []TripSeed `json:"trips"`
}

// Build the trips described by the seed, created relative to now.
func (s Seed) tripsAt(now time.Time) ([]*domain.Trip, error) {
	out := make([]*domain.Trip, 0, len(s.Trips))
	for i, item := range s.Trips {
		if len(item.Destinations) == 0 {
			return nil, fmt.Errorf("trip at index %d: %w", i+1, domain.ErrNoDestinations)
		}
		if len(item.SegmentMeters) != len(item.Destinations) {
			return nil, fmt.Errorf("trip at index %d: %d segment distances for %d destinations", i+1, len(item.SegmentMeters), len(item.Destinations))
		}
		origin := domain.Coordinate{Lat: item.Origin.Lat, Lng: item.Origin.Lng}
		if err := origin.Validate(); err != nil {
			return nil, fmt.Errorf("trip at index %d: origin: %w", i+1, err)
		}

		created := now.Add(-time.Duration(item.MinutesAgo) * time.Minute)
		t := &domain.Trip{
			ID:        created.UnixMilli() + int64(i),
			Origin:    domain.Waypoint{ID: 0, Coordinate: origin, Address: strings.TrimSpace(item.Origin.Address)},
			Status:    domain.TripStatus(item.Status),
			Color:     item.Color,
			CreatedAt: created,
		}
		prev := origin
		for j, d := range item.Destinations {
			c := domain.Coordinate{Lat: d.Lat, Lng: d.Lng}
			if err := c.Validate(); err != nil {
				return nil, fmt.Errorf("trip at index %d: destination %d: %w", i+1, j+1, err)
			}
			t.Destinations = append(t.Destinations, domain.Waypoint{ID: j + 1, Coordinate: c, Address: strings.TrimSpace(d.Address)})
			t.Segments = append(t.Segments, &domain.Route{Polyline: []domain.Coordinate{prev, c}, DistanceMeters: item.SegmentMeters[j]})
			prev = c
		}

		switch t.Status {
		case domain.TripStatusActive:
		case domain.TripStatusCompleted:
			done := created
			t.CompletedAt = &done
		default:
			return nil, fmt.Errorf("trip at index %d: invalid status %q", i+1, item.Status)
		}
		if t.Color == "" {
			t.Color = domain.DefaultPalette[i%len(domain.DefaultPalette)]
		}
		rate := item.RatePerKm
		if rate <= 0 {
			rate = s.RatePerKm
		}
		t.Recompute(rate)
		out = append(out, t)
	}
	return out, nil
}

// Populate the database with demo trips and the default rate from a JSON file.
// Trips are dated relative to now so they show up in today's lists.
func SeedFromJSON(db *sql.DB, naming RecordNaming, jsonPath string, now time.Time) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed trips: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed trips: parse json: %w", err)
	}
	if data.RatePerKm <= 0 {
		return fmt.Errorf("seed trips: invalid rate_per_km %v", data.RatePerKm)
	}

	trips, err := data.tripsAt(now)
	if err != nil {
		return fmt.Errorf("seed trips: %w", err)
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed trips: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO settings (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key) DO NOTHING;
	`, ratePerKmKey, fmt.Sprint(data.RatePerKm))
	if err != nil {
		return fmt.Errorf("seed trips: insert default rate: %w", err)
	}

	repo := NewPostgresTripRepository(db, naming)
	query := repo.insertQuery(true)
	for _, t := range trips {
		if err := repo.insert(ctx, tx, query, t); err != nil {
			return fmt.Errorf("seed trips: insert trip id=%d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed trips: commit tx: %w", err)
	}

	return nil
}
