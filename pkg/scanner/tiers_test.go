package scanner

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewComposesStandardTierOrder(t *testing.T) {
	s := New(zerolog.Nop())

	if len(s.strategies) != 3 {
		t.Fatalf("got %d tiers, want 3", len(s.strategies))
	}
	want := []string{RipgrepTier().Name(), GitFilesTier().Name(), WalkTier().Name()}
	for i, strat := range s.strategies {
		if strat.Name() != want[i] {
			t.Errorf("tier %d = %q, want %q", i, strat.Name(), want[i])
		}
	}
}
