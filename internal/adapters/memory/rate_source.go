package memory

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
)

// RateSource keeps the rate per km in process memory.
type RateSource struct {
	bits atomic.Uint64
}

func NewRateSource(initial float64) *RateSource {
	r := &RateSource{}
	r.bits.Store(math.Float64bits(initial))
	return r
}

func (r *RateSource) GetRatePerKm(context.Context) (float64, error) {
	return math.Float64frombits(r.bits.Load()), nil
}

func (r *RateSource) SetRatePerKm(_ context.Context, rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("set rate per km: invalid rate %v", rate)
	}
	r.bits.Store(math.Float64bits(rate))
	return nil
}
