package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func tickAt(sec int, bid float64) Tick {
	return Tick{
		Time: time.Date(2024, 1, 1, 9, 0, sec, 0, time.UTC),
		Bid:  bid,
		Ask:  bid + 0.00015,
	}
}

func TestHistoryBoundedWindow(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Push(tickAt(i, 1.0850+float64(i)*0.0001))
	}

	ticks := h.Ticks()
	assert.Len(t, ticks, 3)
	assert.InDelta(t, 1.0852, ticks[0].Bid, 1e-9)
	assert.InDelta(t, 1.0854, ticks[2].Bid, 1e-9)

	last, ok := h.Last()
	assert.True(t, ok)
	assert.InDelta(t, 1.0854, last.Bid, 1e-9)
}

func TestHistoryEmpty(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)
	assert.Equal(t, 0, h.Len())

	_, ok := h.Last()
	assert.False(t, ok)
}

func TestHistoryTicksIsCopy(t *testing.T) {
	t.Parallel()

	h := NewHistory(5)
	h.Push(tickAt(0, 1.1000))

	got := h.Ticks()
	got[0].Bid = 0

	last, _ := h.Last()
	assert.InDelta(t, 1.1000, last.Bid, 1e-9)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ticks []Tick
		want  Trend
	}{
		{"empty", nil, TrendFlat},
		{"single", []Tick{tickAt(0, 1.0850)}, TrendFlat},
		{"rising", []Tick{tickAt(0, 1.0850), tickAt(1, 1.0860)}, TrendUp},
		{"falling", []Tick{tickAt(0, 1.0860), tickAt(1, 1.0850)}, TrendDown},
		{"unchanged", []Tick{tickAt(0, 1.0850), tickAt(1, 1.0850)}, TrendFlat},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.ticks))
		})
	}
}
