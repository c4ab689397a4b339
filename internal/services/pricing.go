package services

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/ports"
	"context"
	"log"
	"sync"
)

// PricingPolicy prices road distance at the current rate per km.
//
// The rate is read from the source on every call so an administrator's
// change applies to the next computed segment. When the source cannot be
// read the last good rate is used.
type PricingPolicy struct {
	source  ports.RateSource
	metrics Metrics

	mu   sync.Mutex
	last float64
}

func NewPricingPolicy(source ports.RateSource, defaultRate float64, m Metrics) *PricingPolicy {
	return &PricingPolicy{
		source:  source,
		metrics: metricsOrNop(m),
		last:    defaultRate,
	}
}

func (p *PricingPolicy) Rate(ctx context.Context) float64 {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	if p.source == nil {
		return last
	}

	rate, err := p.source.GetRatePerKm(ctx)
	if err != nil || rate <= 0 {
		log.Printf("rate read failed, using last rate=%.2f err=%v", last, err)
		return last
	}

	p.mu.Lock()
	p.last = rate
	p.mu.Unlock()

	p.metrics.RateUsed(rate)
	return rate
}

// Quote prices distanceMeters at the current rate.
func (p *PricingPolicy) Quote(ctx context.Context, distanceMeters float64) (price, rate float64) {
	rate = p.Rate(ctx)
	return domain.Price(distanceMeters/1000, rate), rate
}
