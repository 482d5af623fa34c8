// Package sim implements the position/account valuation and risk-closure
// engine: tick-driven valuation of open positions, stop-loss/take-profit
// and margin-call closures, and the order gateway that admits new trades.
package sim

import (
	"fmt"
	"sync"

	"github.com/rustyeddy/fxterm/internal/id"
	"github.com/rustyeddy/fxterm/journal"
	"github.com/rustyeddy/fxterm/market"
)

// ClosedListener is notified of every closure the engine performs on its
// own (stop-loss, take-profit, margin call). Manual closes report their
// result to the caller directly and do not go through the listener.
type ClosedListener interface {
	OnPositionClosed(Closure)
}

// Engine owns the account balance and the open-position set. All mutation
// paths — ticks, orders, closes, deposits — serialize behind one mutex, so
// a manual close racing an automatic close on the same position resolves
// to exactly one closure. Listener callbacks fire after the lock is
// released.
type Engine struct {
	mu        sync.Mutex
	acct      Account
	tick      market.Tick
	positions map[string]*Position
	order     []string // insertion order, meaningful for display only
	journal   journal.Journal
	listener  ClosedListener
}

func NewEngine(acct Account, j journal.Journal) *Engine {
	if acct.Leverage <= 0 {
		acct.Leverage = DefaultLeverage
	}
	if acct.MarginCallLevel <= 0 {
		acct.MarginCallLevel = DefaultMarginCallLevel
	}
	if j == nil {
		j = journal.NewMemory()
	}
	return &Engine{
		acct:      acct,
		positions: make(map[string]*Position),
		journal:   j,
	}
}

// SetListener installs the closure listener. Call before the first tick.
func (e *Engine) SetListener(l ClosedListener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

// Account returns a copy of the account parameters and current balance.
func (e *Engine) Account() Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct
}

// Tick returns the most recent tick applied to the engine.
func (e *Engine) Tick() market.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Positions returns copies of the open positions in open order.
func (e *Engine) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Position, 0, len(e.order))
	for _, pid := range e.order {
		out = append(out, *e.positions[pid])
	}
	return out
}

// Snapshot recomputes the derived account state against the latest tick.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// ApplyTick re-evaluates every open position against the new tick:
//
//  1. Stop-loss/take-profit triggers, stop-loss first, tested at the bid
//     for longs and the ask for shorts. A triggered position closes at its
//     SL/TP price, not the live quote.
//  2. All same-tick triggers apply as one batch: realized P/L is summed
//     and added to the balance once, and the positions leave the open set
//     in one step.
//  3. On the post-closure snapshot, a margin level below the account's
//     threshold force-closes everything remaining at market in a second
//     batch. Balance then equals the equity captured just before the
//     liquidation.
//
// Every resulting closure is reported through the listener.
func (e *Engine) ApplyTick(t market.Tick) error {
	e.mu.Lock()
	e.tick = t

	var closures []Closure
	for _, pid := range e.order {
		p := e.positions[pid]
		quote := p.CloseQuote(t)

		var (
			reason CloseReason
			price  float64
		)
		switch {
		case hitStopLoss(p, quote):
			reason, price = CloseStopLoss, *p.StopLoss
		case hitTakeProfit(p, quote):
			reason, price = CloseTakeProfit, *p.TakeProfit
		default:
			continue
		}

		closures = append(closures, Closure{
			Position: *p,
			Price:    price,
			Realized: PL(*p, price),
			Reason:   reason,
			Time:     t.Time,
		})
	}

	if err := e.applyBatchLocked(closures); err != nil {
		e.mu.Unlock()
		return err
	}

	// Margin call runs on the post-closure snapshot, so it never fires on
	// positions already closed this tick.
	snap := e.snapshotLocked()
	if snap.UsedMargin > 0 && snap.MarginLevel < e.acct.MarginCallLevel {
		liquidated, err := e.closeAllLocked(CloseMarginCall)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		closures = append(closures, liquidated...)
	}

	err := e.recordEquityLocked()
	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		for _, c := range closures {
			listener.OnPositionClosed(c)
		}
	}
	return err
}

// PlaceOrder validates and admits a new position against the latest tick.
// A buy fills at the ask, a sell at the bid. Stop-loss and take-profit
// must sit strictly on the correct side of the entry quote, and the
// margin check uses the current ask.
func (e *Engine) PlaceOrder(side Side, lots float64, stopLoss, takeProfit *float64) (Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tick.IsZero() {
		return Position{}, ErrNoPrice
	}
	if !side.Valid() {
		return Position{}, fmt.Errorf("unknown side %q", side)
	}
	if lots < MinLots || lots > MaxLots {
		return Position{}, fmt.Errorf("%w: %v not in [%v, %v]", ErrInvalidLots, lots, MinLots, MaxLots)
	}

	if side == Buy {
		if stopLoss != nil && *stopLoss >= e.tick.Ask {
			return Position{}, fmt.Errorf("%w: %.5f must be below ask %.5f", ErrInvalidStopLoss, *stopLoss, e.tick.Ask)
		}
		if takeProfit != nil && *takeProfit <= e.tick.Ask {
			return Position{}, fmt.Errorf("%w: %.5f must be above ask %.5f", ErrInvalidTakeProfit, *takeProfit, e.tick.Ask)
		}
	} else {
		if stopLoss != nil && *stopLoss <= e.tick.Bid {
			return Position{}, fmt.Errorf("%w: %.5f must be above bid %.5f", ErrInvalidStopLoss, *stopLoss, e.tick.Bid)
		}
		if takeProfit != nil && *takeProfit >= e.tick.Bid {
			return Position{}, fmt.Errorf("%w: %.5f must be below bid %.5f", ErrInvalidTakeProfit, *takeProfit, e.tick.Bid)
		}
	}

	required := RequiredMargin(lots, e.tick.Ask, e.acct.Leverage)
	if snap := e.snapshotLocked(); required > snap.FreeMargin {
		return Position{}, fmt.Errorf("%w: need %.2f, free %.2f", ErrInsufficientMargin, required, snap.FreeMargin)
	}

	entry := e.tick.Ask
	if side == Sell {
		entry = e.tick.Bid
	}

	p := &Position{
		ID:         id.New(),
		Side:       side,
		Lots:       lots,
		OpenPrice:  entry,
		OpenTime:   e.tick.Time,
		StopLoss:   clonePrice(stopLoss),
		TakeProfit: clonePrice(takeProfit),
	}
	e.positions[p.ID] = p
	e.order = append(e.order, p.ID)

	return *p, nil
}

// ClosePosition closes one position at the current market quote and folds
// its realized P/L into the balance. Closing an unknown or already-closed
// id reports ErrPositionNotFound and leaves the balance untouched.
func (e *Engine) ClosePosition(pid string) (Closure, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.positions[pid]
	if !ok {
		return Closure{}, fmt.Errorf("close %q: %w", pid, ErrPositionNotFound)
	}

	price := p.CloseQuote(e.tick)
	c := Closure{
		Position: *p,
		Price:    price,
		Realized: PL(*p, price),
		Reason:   CloseManual,
		Time:     e.tick.Time,
	}

	if err := e.applyBatchLocked([]Closure{c}); err != nil {
		return Closure{}, err
	}
	return c, e.recordEquityLocked()
}

// CloseAll closes every open position at market in one batch.
func (e *Engine) CloseAll(reason CloseReason) ([]Closure, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	closures, err := e.closeAllLocked(reason)
	if err != nil {
		return nil, err
	}
	if len(closures) == 0 {
		return nil, nil
	}
	return closures, e.recordEquityLocked()
}

// Deposit credits the balance. Equity moves by the same amount; used
// margin and margin level are unaffected.
func (e *Engine) Deposit(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit must be positive, got %v", amount)
	}

	e.mu.Lock()
	e.acct.Balance += amount
	e.mu.Unlock()
	return nil
}

func (e *Engine) closeAllLocked(reason CloseReason) ([]Closure, error) {
	if len(e.order) == 0 {
		return nil, nil
	}

	closures := make([]Closure, 0, len(e.order))
	for _, pid := range e.order {
		p := e.positions[pid]
		price := p.CloseQuote(e.tick)
		closures = append(closures, Closure{
			Position: *p,
			Price:    price,
			Realized: PL(*p, price),
			Reason:   reason,
			Time:     e.tick.Time,
		})
	}
	return closures, e.applyBatchLocked(closures)
}

// applyBatchLocked removes the closed positions in one step and applies
// the summed realized P/L to the balance once, so no mid-batch snapshot
// can observe a partially applied state.
func (e *Engine) applyBatchLocked(closures []Closure) error {
	if len(closures) == 0 {
		return nil
	}

	var realized float64
	for _, c := range closures {
		realized += c.Realized
		delete(e.positions, c.Position.ID)
	}
	e.acct.Balance += realized

	kept := e.order[:0]
	for _, pid := range e.order {
		if _, open := e.positions[pid]; open {
			kept = append(kept, pid)
		}
	}
	e.order = kept

	for _, c := range closures {
		if err := e.journal.RecordClose(journal.CloseRecord{
			PositionID: c.Position.ID,
			Side:       string(c.Position.Side),
			Lots:       c.Position.Lots,
			OpenPrice:  c.Position.OpenPrice,
			ClosePrice: c.Price,
			OpenTime:   c.Position.OpenTime,
			CloseTime:  c.Time,
			RealizedPL: c.Realized,
			Reason:     string(c.Reason),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Balance: e.acct.Balance,
		Equity:  e.acct.Balance,
	}
	for _, pid := range e.order {
		p := e.positions[pid]
		s.Equity += FloatingPL(*p, e.tick)
		s.UsedMargin += RequiredMargin(p.Lots, p.OpenPrice, e.acct.Leverage)
	}
	s.FreeMargin = s.Equity - s.UsedMargin
	if s.UsedMargin > 0 {
		s.MarginLevel = s.Equity / s.UsedMargin * 100
	}
	return s
}

func (e *Engine) recordEquityLocked() error {
	s := e.snapshotLocked()
	return e.journal.RecordEquity(journal.EquityRecord{
		Time:        e.tick.Time,
		Balance:     s.Balance,
		Equity:      s.Equity,
		UsedMargin:  s.UsedMargin,
		FreeMargin:  s.FreeMargin,
		MarginLevel: s.MarginLevel,
	})
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
