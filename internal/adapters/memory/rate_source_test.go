package memory

import (
	"context"
	"testing"
)

func TestRateSource(t *testing.T) {
	ctx := context.Background()
	r := NewRateSource(500)

	if got, _ := r.GetRatePerKm(ctx); got != 500 {
		t.Fatalf("rate = %v, want 500", got)
	}
	if err := r.SetRatePerKm(ctx, 750); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := r.GetRatePerKm(ctx); got != 750 {
		t.Fatalf("rate = %v, want 750", got)
	}
	if err := r.SetRatePerKm(ctx, 0); err == nil {
		t.Fatalf("expected error for zero rate")
	}
}
