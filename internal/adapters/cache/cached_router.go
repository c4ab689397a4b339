package cache

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/ports"
	"context"
	"log"
)

type RouteCache interface {
	Get(ctx context.Context, from, to domain.Coordinate) (domain.Route, bool, error)
	Put(ctx context.Context, from, to domain.Coordinate, r domain.Route) error
}

// CachedRouter consults Cache before Next. Failed routes are never cached,
// and cache errors only cost a lookup.
type CachedRouter struct {
	Next  ports.Router
	Cache RouteCache
}

func (c *CachedRouter) Route(ctx context.Context, from, to domain.Coordinate) (domain.Route, error) {
	r, ok, err := c.Cache.Get(ctx, from, to)
	if err != nil {
		log.Printf("route cache read failed from=%s to=%s err=%v", from, to, err)
	}
	if ok {
		return r, nil
	}

	r, err = c.Next.Route(ctx, from, to)
	if err != nil {
		return domain.Route{}, err
	}

	if err := c.Cache.Put(ctx, from, to, r); err != nil {
		log.Printf("route cache write failed from=%s to=%s err=%v", from, to, err)
	}
	return r, nil
}
