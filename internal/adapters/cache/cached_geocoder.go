package cache

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/ports"
	"context"
	"log"
	"strings"
)

type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Waypoint, error)
	PutMany(ctx context.Context, results map[string]domain.Waypoint) error
}

// CachedGeocoder serves forward lookups from cache when possible. Only
// successful lookups are stored; reverse lookups always go to Next.
type CachedGeocoder struct {
	Next  ports.Geocoder
	Cache GeocodeCache
}

// normalize ensures consistent cache keys by collapsing whitespace and case.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (domain.Waypoint, error) {
	key := normalize(address)

	if key != "" {
		hits, err := c.Cache.GetMany(ctx, []string{key})
		if err != nil {
			log.Printf("geocode cache read failed address=%q err=%v", key, err)
		} else if wp, ok := hits[key]; ok {
			return wp, nil
		}
	}

	wp, err := c.Next.Geocode(ctx, address)
	if err != nil {
		return domain.Waypoint{}, err
	}

	if key != "" {
		if err := c.Cache.PutMany(ctx, map[string]domain.Waypoint{key: wp}); err != nil {
			log.Printf("geocode cache write failed address=%q err=%v", key, err)
		}
	}
	return wp, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, p domain.Coordinate) string {
	return c.Next.ReverseGeocode(ctx, p)
}
