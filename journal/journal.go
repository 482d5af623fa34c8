// Package journal records closed positions and equity snapshots for a
// terminal session. Records are append-only; nothing is ever read back
// into the engine.
package journal

import "time"

// CloseRecord is one closed position.
type CloseRecord struct {
	PositionID string
	Side       string
	Lots       float64
	OpenPrice  float64
	ClosePrice float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// EquityRecord is the derived account state at one tick.
type EquityRecord struct {
	Time        time.Time
	Balance     float64
	Equity      float64
	UsedMargin  float64
	FreeMargin  float64
	MarginLevel float64
}

type Journal interface {
	RecordClose(CloseRecord) error
	RecordEquity(EquityRecord) error
	Close() error
}
