package cache

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/platform/obs"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLRouteCache is a SQL-backed route cache for deployments without Redis.
// Rows are keyed by the geohash cells of both ends, like RedisRouteCache.
type SQLRouteCache struct {
	DB *sql.DB
}

func NewSQLRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db}
}

// Fetch the cached route from -> to, ok=false on a miss.
func (s *SQLRouteCache) Get(
	ctx context.Context,
	from domain.Coordinate,
	to domain.Coordinate,
) (_ domain.Route, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.sql.Get")(&err)

	if s.DB == nil {
		return domain.Route{}, false, errors.New("route cache: db is nil")
	}

	q := `
	SELECT distance_meters, duration_seconds, polyline
	FROM route_cache
	WHERE origin_cell = $1
		AND destination_cell = $2;
	`

	var r domain.Route
	var poly []byte
	err = s.DB.QueryRowContext(ctx, q, geohashCell(from), geohashCell(to)).Scan(&r.DistanceMeters, &r.DurationSeconds, &poly)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, false, nil
	}
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	var pairs [][2]float64
	if err := json.Unmarshal(poly, &pairs); err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache: decode polyline: %w", err)
	}
	r.Polyline = make([]domain.Coordinate, len(pairs))
	for i, p := range pairs {
		r.Polyline[i] = domain.Coordinate{Lat: p[0], Lng: p[1]}
	}

	return r, true, nil
}

// Store the route from -> to, replacing any previous entry.
func (s *SQLRouteCache) Put(
	ctx context.Context,
	from domain.Coordinate,
	to domain.Coordinate,
	r domain.Route,
) (err error) {
	defer obs.Time(ctx, "route.cache.sql.Put")(&err)

	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	pairs := make([][2]float64, len(r.Polyline))
	for i, p := range r.Polyline {
		pairs[i] = [2]float64{p.Lat, p.Lng}
	}
	poly, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("insert route cache: encode polyline: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO route_cache (origin_cell, destination_cell, distance_meters, duration_seconds, polyline)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (origin_cell, destination_cell) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		polyline = EXCLUDED.polyline;
	`, geohashCell(from), geohashCell(to), r.DistanceMeters, r.DurationSeconds, string(poly))
	if err != nil {
		return fmt.Errorf("insert route cache: %w", err)
	}

	return nil
}
