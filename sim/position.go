package sim

import (
	"time"

	"github.com/rustyeddy/fxterm/market"
)

// Side is the direction of a position.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) multiplier() float64 {
	if s == Sell {
		return -1
	}
	return 1
}

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Lot size bounds accepted by the order gateway.
const (
	MinLots = 0.01
	MaxLots = 10.0
)

// Position is one open leveraged trade. It is created by the order gateway
// and owned by the engine until closed; it is never mutated after creation
// and its identity does not survive a close.
type Position struct {
	ID         string
	Side       Side
	Lots       float64
	OpenPrice  float64
	OpenTime   time.Time
	StopLoss   *float64
	TakeProfit *float64
}

// CloseQuote is the side of the quote the position closes against: a long
// is sold at the bid, a short is bought back at the ask. The same side is
// used when testing stop-loss/take-profit triggers.
func (p Position) CloseQuote(t market.Tick) float64 {
	if p.Side == Sell {
		return t.Ask
	}
	return t.Bid
}

// CloseReason tags why a position left the open set.
type CloseReason string

const (
	CloseManual     CloseReason = "Manual"
	CloseStopLoss   CloseReason = "StopLoss"
	CloseTakeProfit CloseReason = "TakeProfit"
	CloseMarginCall CloseReason = "MarginCall"
)

// Closure describes one applied close.
type Closure struct {
	Position Position
	Price    float64
	Realized float64
	Reason   CloseReason
	Time     time.Time
}
