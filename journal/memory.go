package journal

import "sync"

// Memory keeps records in process. It is the default journal for runs that
// did not configure a file or database backend, and doubles as the test
// journal.
type Memory struct {
	mu     sync.RWMutex
	closes []CloseRecord
	equity []EquityRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordClose(r CloseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes = append(m.closes, r)
	return nil
}

func (m *Memory) RecordEquity(r EquityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, r)
	return nil
}

// Closes returns a copy of the recorded closes, oldest first.
func (m *Memory) Closes() []CloseRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CloseRecord, len(m.closes))
	copy(out, m.closes)
	return out
}

// Equity returns a copy of the recorded snapshots, oldest first.
func (m *Memory) Equity() []EquityRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EquityRecord, len(m.equity))
	copy(out, m.equity)
	return out
}

func (m *Memory) Close() error { return nil }
