package events

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/ports"
	"context"
	"errors"
	"log"
)

// Fanout delivers each event to every publisher. A failing publisher does
// not stop delivery to the others; their errors are joined.
type Fanout []ports.TripEventPublisher

func (f Fanout) Publish(ctx context.Context, ev domain.TripEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			log.Printf("event publish failed type=%s trip=%d err=%v", ev.Type, ev.TripID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
