// Package indicators computes moving averages over the terminal's tick
// history. They feed the analyst's market context, not the engine: position
// accounting never depends on an indicator.
package indicators

import (
	"fmt"

	"github.com/rustyeddy/fxterm/market"
)

// SMA calculates the Simple Moving Average of the mid price over the last
// period ticks.
func SMA(ticks []market.Tick, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(ticks) < period {
		return 0, fmt.Errorf("not enough ticks: need %d, got %d", period, len(ticks))
	}

	sum := 0.0
	for i := len(ticks) - period; i < len(ticks); i++ {
		sum += ticks[i].Mid()
	}
	return sum / float64(period), nil
}

// EMA calculates the Exponential Moving Average of the mid price. The first
// period ticks seed it with their SMA.
func EMA(ticks []market.Tick, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(ticks) < period {
		return 0, fmt.Errorf("not enough ticks: need %d, got %d", period, len(ticks))
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += ticks[i].Mid()
	}
	ema := sma / float64(period)

	for i := period; i < len(ticks); i++ {
		ema = (ticks[i].Mid()-ema)*multiplier + ema
	}
	return ema, nil
}
