// Package risk sizes positions from the account's risk appetite: given the
// equity, the fraction of it the trader is willing to lose, and the distance
// to the stop, it suggests a lot size. Suggestions only; the engine never
// consults this package.
package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/fxterm/market"
	"github.com/rustyeddy/fxterm/sim"
)

// lotStep is the granularity suggestions are rounded down to.
const lotStep = 0.01

// Inputs describes one sizing question.
type Inputs struct {
	Equity       float64
	RiskFraction float64 // e.g. 0.01 risks 1% of equity
	EntryPrice   float64
	StopPrice    float64
}

// Result is a sizing suggestion. Lots is clamped to the tradeable range and
// rounded down to the lot step.
type Result struct {
	Lots       float64
	StopPips   float64
	RiskAmount float64
}

// SuggestLots answers how many lots keep the loss at the stop within the
// given fraction of equity.
func SuggestLots(in Inputs) (Result, error) {
	if in.Equity <= 0 {
		return Result{}, fmt.Errorf("equity must be positive, got %.2f", in.Equity)
	}
	if in.RiskFraction <= 0 || in.RiskFraction > 1 {
		return Result{}, fmt.Errorf("risk fraction must be in (0, 1], got %.4f", in.RiskFraction)
	}
	stopDistance := math.Abs(in.EntryPrice - in.StopPrice)
	if stopDistance == 0 {
		return Result{}, fmt.Errorf("stop price equals entry price")
	}

	riskAmount := in.Equity * in.RiskFraction

	// Loss at the stop is stopDistance * lots * contract size; solve for lots.
	lots := riskAmount / (stopDistance * market.ContractSize)
	lots = math.Floor(lots/lotStep) * lotStep
	lots = math.Min(lots, sim.MaxLots)

	if lots < sim.MinLots {
		return Result{}, fmt.Errorf("risk budget $%.2f too small for the %.1f-pip stop", riskAmount, stopDistance/market.PipSize)
	}

	return Result{
		Lots:       lots,
		StopPips:   stopDistance / market.PipSize,
		RiskAmount: riskAmount,
	}, nil
}

// RewardRisk is the reward-to-risk ratio of a planned trade, 0 when the
// stop sits on the entry.
func RewardRisk(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}
