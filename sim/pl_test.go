package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/fxterm/market"
)

func TestPL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		side       Side
		lots       float64
		openPrice  float64
		closePrice float64
		expected   float64
	}{
		{"long_profit", Buy, 1.0, 1.08515, 1.08600, 85.0},
		{"long_loss", Buy, 1.0, 1.2000, 1.1900, -1000.0},
		{"short_profit", Sell, 0.5, 1.2000, 1.1900, 500.0},
		{"short_loss", Sell, 0.5, 1.08500, 1.08700, -100.0},
		{"at_open_price", Buy, 2.5, 1.0850, 1.0850, 0.0},
		{"small_lots", Buy, 0.01, 1.1000, 1.1010, 1.0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Position{Side: tt.side, Lots: tt.lots, OpenPrice: tt.openPrice}
			assert.InDelta(t, tt.expected, PL(p, tt.closePrice), 1e-9)
		})
	}
}

func TestFloatingPLUsesCloseSide(t *testing.T) {
	t.Parallel()

	tick := market.Tick{
		Time: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Bid:  1.08600,
		Ask:  1.08615,
	}

	long := Position{Side: Buy, Lots: 1.0, OpenPrice: 1.08515}
	assert.InDelta(t, 85.0, FloatingPL(long, tick), 1e-9, "long marks at bid")

	short := Position{Side: Sell, Lots: 1.0, OpenPrice: 1.08515}
	assert.InDelta(t, -100.0, FloatingPL(short, tick), 1e-9, "short marks at ask")
}

func TestFloatingPLZeroAtOpeningQuote(t *testing.T) {
	t.Parallel()

	// With the opening tick's close-side quote equal to the open price,
	// valuation is exactly zero.
	tick := market.Tick{Bid: 1.0850, Ask: 1.0850}

	long := Position{Side: Buy, Lots: 1.0, OpenPrice: tick.Ask}
	assert.Zero(t, FloatingPL(long, tick))

	short := Position{Side: Sell, Lots: 1.0, OpenPrice: tick.Bid}
	assert.Zero(t, FloatingPL(short, tick))
}

func TestRequiredMargin(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1085.15, RequiredMargin(1.0, 1.08515, 100), 1e-9)
	assert.InDelta(t, 542.575, RequiredMargin(0.5, 1.08515, 100), 1e-9)
	assert.InDelta(t, 2170.30, RequiredMargin(1.0, 1.08515, 50), 1e-9)
	assert.Zero(t, RequiredMargin(0, 1.08515, 100))
}
