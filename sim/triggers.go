package sim

// hitStopLoss reports whether the close-side quote trips the stop.
func hitStopLoss(p *Position, quote float64) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == Buy {
		return quote <= *p.StopLoss
	}
	return quote >= *p.StopLoss
}

// hitTakeProfit reports whether the close-side quote trips the target.
func hitTakeProfit(p *Position, quote float64) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == Buy {
		return quote >= *p.TakeProfit
	}
	return quote <= *p.TakeProfit
}
