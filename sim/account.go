package sim

// Account holds the parameters and mutable balance of the simulated
// account. Balance changes only through realized P/L and deposits.
type Account struct {
	ID       string
	Currency string
	Balance  float64

	// Leverage divides notional value into required margin. 100 means 1:100.
	Leverage float64

	// MarginCallLevel is the margin level percentage below which every
	// open position is force-closed.
	MarginCallLevel float64
}

// Default parameters for a demo account.
const (
	DefaultLeverage        = 100.0
	DefaultMarginCallLevel = 50.0
)

// Snapshot is the derived account state at one tick. It is recomputed on
// demand and never cached across ticks.
type Snapshot struct {
	Balance    float64
	Equity     float64
	UsedMargin float64
	FreeMargin float64

	// MarginLevel is equity/usedMargin*100, defined as 0 (not infinity)
	// when no margin is in use.
	MarginLevel float64
}
