package sim

import "github.com/rustyeddy/fxterm/market"

// PL is the profit or loss of a position closed at the given price.
func PL(p Position, closePrice float64) float64 {
	return (closePrice - p.OpenPrice) * p.Side.multiplier() * p.Lots * market.ContractSize
}

// FloatingPL values an open position against the tick, using the quote side
// the counterparty would fill a close at.
func FloatingPL(p Position, t market.Tick) float64 {
	return PL(p, p.CloseQuote(t))
}

// RequiredMargin is the capital reserved against a position of the given
// size. New-order checks pass the current ask; aggregate margin passes each
// position's open price.
func RequiredMargin(lots, refPrice, leverage float64) float64 {
	return lots * market.ContractSize * refPrice / leverage
}
