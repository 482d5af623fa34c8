package market

import "time"

// Contract constants for the simulated EUR/USD pair.
const (
	// ContractSize is the number of base-currency units in 1.0 lot.
	ContractSize = 100_000.0

	// PipSize is the price value of one pip.
	PipSize = 0.0001
)

// Tick is a single two-sided quote. Ticks are immutable once emitted.
type Tick struct {
	Time time.Time
	Bid  float64
	Ask  float64
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// IsZero reports whether the tick has never been set.
func (t Tick) IsZero() bool {
	return t.Time.IsZero()
}
