package ports

import (
	"cadete-dispatch-service/internal/domain"
	"context"
	"time"
)

// Port: persistence sink for finalized trips.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	UpdateStatus(ctx context.Context, id int64, status domain.TripStatus, completedAt *time.Time) error
	Delete(ctx context.Context, id int64) error
	// Trips created at or after since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]domain.Trip, error)
}
