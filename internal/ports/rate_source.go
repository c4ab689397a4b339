package ports

import "context"

// Runtime-configurable price per kilometre.
type RateSource interface {
	GetRatePerKm(ctx context.Context) (float64, error)
	SetRatePerKm(ctx context.Context, rate float64) error
}
