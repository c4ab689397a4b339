package services

import (
	"cadete-dispatch-service/internal/domain"
	"context"
	"fmt"
)

// PlanFromAddresses builds and finalizes a trip from typed addresses using
// the same rules as interactive building. Any failure cancels the builder.
func PlanFromAddresses(ctx context.Context, b *TripBuilder, origin string, destinations []string) (domain.Trip, error) {
	if len(destinations) == 0 {
		return domain.Trip{}, fmt.Errorf("plan from addresses: %w", domain.ErrNoDestinations)
	}
	if b.Mode() != ModeMulti {
		return domain.Trip{}, fmt.Errorf("plan from addresses: builder mode %q: %w", b.Mode(), domain.ErrInvalidState)
	}

	if _, err := b.AddOrigin(ctx, AtAddress(origin)); err != nil {
		b.Cancel()
		return domain.Trip{}, fmt.Errorf("plan from addresses: origin: %w", err)
	}

	for i, d := range destinations {
		if _, err := b.AddDestination(ctx, AtAddress(d)); err != nil {
			b.Cancel()
			return domain.Trip{}, fmt.Errorf("plan from addresses: destination %d: %w", i+1, err)
		}
	}

	t, err := b.Finalize(ctx)
	if err != nil {
		b.Cancel()
		return domain.Trip{}, fmt.Errorf("plan from addresses: %w", err)
	}
	return t, nil
}
