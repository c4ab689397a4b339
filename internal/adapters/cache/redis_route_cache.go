package cache

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/platform/obs"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"
)

// Cell size at precision 9 is roughly 5m x 5m.
const routeKeyPrecision = 9

// RedisRouteCache stores routes keyed by the geohash cells of both ends.
type RedisRouteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRouteCache(rdb *redis.Client, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{rdb: rdb, ttl: ttl}
}

type cachedRoute struct {
	Polyline        [][2]float64 `json:"p"`
	DistanceMeters  float64      `json:"d"`
	DurationSeconds float64      `json:"s"`
}

func geohashCell(c domain.Coordinate) string {
	return geohash.EncodeWithPrecision(c.Lat, c.Lng, routeKeyPrecision)
}

func routeKey(from, to domain.Coordinate) string {
	return "route:" + geohashCell(from) + ":" + geohashCell(to)
}

// Get returns the cached route, ok=false on a miss.
func (c *RedisRouteCache) Get(ctx context.Context, from, to domain.Coordinate) (_ domain.Route, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.Get")(&err)

	b, err := c.rdb.Get(ctx, routeKey(from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Route{}, false, nil
	}
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("route cache get: %w", err)
	}

	var cr cachedRoute
	if err := json.Unmarshal(b, &cr); err != nil {
		return domain.Route{}, false, fmt.Errorf("route cache decode: %w", err)
	}

	r := domain.Route{
		Polyline:        make([]domain.Coordinate, len(cr.Polyline)),
		DistanceMeters:  cr.DistanceMeters,
		DurationSeconds: cr.DurationSeconds,
	}
	for i, p := range cr.Polyline {
		r.Polyline[i] = domain.Coordinate{Lat: p[0], Lng: p[1]}
	}
	return r, true, nil
}

func (c *RedisRouteCache) Put(ctx context.Context, from, to domain.Coordinate, r domain.Route) (err error) {
	defer obs.Time(ctx, "route.cache.Put")(&err)

	cr := cachedRoute{
		Polyline:        make([][2]float64, len(r.Polyline)),
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
	}
	for i, p := range r.Polyline {
		cr.Polyline[i] = [2]float64{p.Lat, p.Lng}
	}

	b, err := json.Marshal(cr)
	if err != nil {
		return fmt.Errorf("route cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, routeKey(from, to), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("route cache set: %w", err)
	}
	return nil
}
