package market

import "sync"

// DefaultHistorySize is the number of recent ticks retained for display
// and trend classification.
const DefaultHistorySize = 60

// History is a bounded rolling window of the most recent ticks. The core
// engine only ever needs the latest tick; the window exists for charting
// and trend classification.
type History struct {
	mu    sync.RWMutex
	limit int
	ticks []Tick
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Push appends a tick, evicting the oldest once the window is full.
func (h *History) Push(t Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ticks = append(h.ticks, t)
	if len(h.ticks) > h.limit {
		h.ticks = h.ticks[len(h.ticks)-h.limit:]
	}
}

// Ticks returns a copy of the window, oldest first.
func (h *History) Ticks() []Tick {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Tick, len(h.ticks))
	copy(out, h.ticks)
	return out
}

// Last returns the most recent tick, if any.
func (h *History) Last() (Tick, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.ticks) == 0 {
		return Tick{}, false
	}
	return h.ticks[len(h.ticks)-1], true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ticks)
}
