// Package commentary produces AI market commentary for the terminal. The
// upstream call is best-effort: any failure substitutes a fixed neutral
// analysis, so callers never see an error.
package commentary

import (
	"context"

	"github.com/rustyeddy/fxterm/market"
)

type Sentiment string

const (
	Bullish Sentiment = "BULLISH"
	Bearish Sentiment = "BEARISH"
	Neutral Sentiment = "NEUTRAL"
)

func (s Sentiment) Valid() bool {
	return s == Bullish || s == Bearish || s == Neutral
}

// Request describes the market state the analyst comments on. SMA and EMA
// are optional context; zero means the history is too short to compute them.
type Request struct {
	Price float64
	Trend market.Trend
	SMA   float64
	EMA   float64
}

// Analysis is one piece of commentary.
type Analysis struct {
	Headline  string    `json:"headline"`
	Analysis  string    `json:"analysis"`
	Sentiment Sentiment `json:"sentiment"`
}

// Analyst generates commentary. Implementations must return Fallback()
// instead of failing.
type Analyst interface {
	Analyze(ctx context.Context, req Request) Analysis
}

// Fallback is the fixed analysis substituted whenever the upstream call
// fails or returns a malformed response.
func Fallback() Analysis {
	return Analysis{
		Headline:  "Market waiting for news...",
		Analysis:  "Technical indicators are mixed. Tread carefully.",
		Sentiment: Neutral,
	}
}
