package market

// Trend is a rough direction classification of the recent tick window.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// Classify compares the oldest bid in the window against the newest.
// An empty or single-tick window is FLAT.
func Classify(ticks []Tick) Trend {
	if len(ticks) < 2 {
		return TrendFlat
	}

	first := ticks[0].Bid
	last := ticks[len(ticks)-1].Bid

	switch {
	case last > first:
		return TrendUp
	case last < first:
		return TrendDown
	default:
		return TrendFlat
	}
}
