package ports

import (
	"cadete-dispatch-service/internal/domain"
	"context"
)

type TripEventPublisher interface {
	Publish(ctx context.Context, ev domain.TripEvent) error
}
