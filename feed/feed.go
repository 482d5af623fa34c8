// Package feed generates the synthetic two-sided price stream that drives
// the terminal. Prices follow a bounded random walk with an adjustable
// trend bias.
package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/fxterm/market"
)

const (
	DefaultStartPrice = 1.0850
	DefaultVolatility = 0.0002
	DefaultSpread     = 0.00015
	DefaultInterval   = time.Second

	// Hard floor/ceiling on the mid price. A simulation safety rail,
	// not a market constraint.
	priceFloor   = 0.5
	priceCeiling = 1.5
)

// Feed produces ticks from a random walk:
//
//	mid += (u(0,1) - 0.5 + trendBias*0.1) * volatility
//
// with mid clamped to [0.5, 1.5]. Bid is the mid, ask adds a fixed spread.
type Feed struct {
	mu         sync.Mutex
	mid        float64
	volatility float64
	spread     float64
	trendBias  float64
	rng        *rand.Rand
	now        func() time.Time
}

type Option func(*Feed)

// WithStartPrice sets the initial mid price.
func WithStartPrice(p float64) Option {
	return func(f *Feed) { f.mid = p }
}

func WithVolatility(v float64) Option {
	return func(f *Feed) { f.volatility = v }
}

func WithSpread(s float64) Option {
	return func(f *Feed) { f.spread = s }
}

// WithRand injects the random source. Tests pass a seeded source for
// deterministic walks.
func WithRand(r *rand.Rand) Option {
	return func(f *Feed) { f.rng = r }
}

// WithClock injects the time source used to stamp ticks.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

func New(opts ...Option) *Feed {
	f := &Feed{
		mid:        DefaultStartPrice,
		volatility: DefaultVolatility,
		spread:     DefaultSpread,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Next advances the walk one step and returns the resulting tick.
func (f *Feed) Next() market.Tick {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mid += (f.rng.Float64() - 0.5 + f.trendBias*0.1) * f.volatility
	if f.mid < priceFloor {
		f.mid = priceFloor
	}
	if f.mid > priceCeiling {
		f.mid = priceCeiling
	}

	return market.Tick{
		Time: f.now(),
		Bid:  f.mid,
		Ask:  f.mid + f.spread,
	}
}

// SetTrendBias sets the walk's drift, clamped to [-1, 1]. It affects
// subsequent ticks only.
func (f *Feed) SetTrendBias(v float64) {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}

	f.mu.Lock()
	f.trendBias = v
	f.mu.Unlock()
}

func (f *Feed) TrendBias() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trendBias
}

// Run emits one tick per interval until the context is cancelled, invoking
// fn for each. fn runs on Run's goroutine, so a slow consumer delays the
// next tick rather than piling up.
func (f *Feed) Run(ctx context.Context, interval time.Duration, fn func(market.Tick)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(f.Next())
		}
	}
}
