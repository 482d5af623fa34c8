package server

import (
	"errors"
	"time"

	"github.com/rustyeddy/fxterm/commentary"
	"github.com/rustyeddy/fxterm/market"
	"github.com/rustyeddy/fxterm/sim"
)

// Event is the envelope for every message sent to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Event types.
const (
	EventTick           = "tick"
	EventAccount        = "account"
	EventPositions      = "positions"
	EventPositionOpened = "position_opened"
	EventPositionClosed = "position_closed"
	EventCommentary     = "commentary"
	EventSizing         = "sizing"
	EventError          = "error"
)

// Command is one client request. Action selects which fields matter.
type Command struct {
	Action     string   `json:"action"` // order, close, close_all, deposit, trend, commentary, size
	Side       string   `json:"side,omitempty"`
	Lots       float64  `json:"lots,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	PositionID string   `json:"position_id,omitempty"`
	Amount     float64  `json:"amount,omitempty"`
	Bias       float64  `json:"bias,omitempty"`
	RiskPct    float64  `json:"risk_pct,omitempty"`
}

type TickPayload struct {
	Time  time.Time    `json:"time"`
	Bid   float64      `json:"bid"`
	Ask   float64      `json:"ask"`
	Trend market.Trend `json:"trend"`
}

type AccountPayload struct {
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	UsedMargin  float64 `json:"used_margin"`
	FreeMargin  float64 `json:"free_margin"`
	MarginLevel float64 `json:"margin_level"`
}

type PositionPayload struct {
	ID         string    `json:"id"`
	Side       string    `json:"side"`
	Lots       float64   `json:"lots"`
	OpenPrice  float64   `json:"open_price"`
	OpenTime   time.Time `json:"open_time"`
	StopLoss   *float64  `json:"stop_loss,omitempty"`
	TakeProfit *float64  `json:"take_profit,omitempty"`
	FloatingPL float64   `json:"floating_pl"`
}

type ClosedPayload struct {
	ID         string    `json:"id"`
	Side       string    `json:"side"`
	Lots       float64   `json:"lots"`
	OpenPrice  float64   `json:"open_price"`
	ClosePrice float64   `json:"close_price"`
	RealizedPL float64   `json:"realized_pl"`
	Reason     string    `json:"reason"`
	Time       time.Time `json:"time"`
}

type CommentaryPayload struct {
	Headline  string               `json:"headline"`
	Analysis  string               `json:"analysis"`
	Sentiment commentary.Sentiment `json:"sentiment"`
}

type SizingPayload struct {
	Lots       float64 `json:"lots"`
	StopPips   float64 `json:"stop_pips"`
	RiskAmount float64 `json:"risk_amount"`
	RewardRisk float64 `json:"reward_risk,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorEvent(code, message string) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Code: code, Message: message}}
}

// rejectionCode maps gateway errors to the wire error taxonomy.
func rejectionCode(err error) string {
	switch {
	case errors.Is(err, sim.ErrInsufficientMargin):
		return "INSUFFICIENT_MARGIN"
	case errors.Is(err, sim.ErrInvalidStopLoss):
		return "INVALID_STOP_LOSS"
	case errors.Is(err, sim.ErrInvalidTakeProfit):
		return "INVALID_TAKE_PROFIT"
	case errors.Is(err, sim.ErrInvalidLots):
		return "INVALID_LOTS"
	case errors.Is(err, sim.ErrNoPrice):
		return "NO_PRICE"
	case errors.Is(err, sim.ErrPositionNotFound):
		return "NOT_FOUND"
	default:
		return "REJECTED"
	}
}

func tickEvent(t market.Tick, trend market.Trend) Event {
	return Event{Type: EventTick, Payload: TickPayload{
		Time:  t.Time,
		Bid:   t.Bid,
		Ask:   t.Ask,
		Trend: trend,
	}}
}

func accountEvent(s sim.Snapshot) Event {
	return Event{Type: EventAccount, Payload: AccountPayload{
		Balance:     s.Balance,
		Equity:      s.Equity,
		UsedMargin:  s.UsedMargin,
		FreeMargin:  s.FreeMargin,
		MarginLevel: s.MarginLevel,
	}}
}

func positionsEvent(positions []sim.Position, tick market.Tick) Event {
	payload := make([]PositionPayload, 0, len(positions))
	for _, p := range positions {
		payload = append(payload, PositionPayload{
			ID:         p.ID,
			Side:       string(p.Side),
			Lots:       p.Lots,
			OpenPrice:  p.OpenPrice,
			OpenTime:   p.OpenTime,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
			FloatingPL: sim.FloatingPL(p, tick),
		})
	}
	return Event{Type: EventPositions, Payload: payload}
}

func closedEvent(c sim.Closure) Event {
	return Event{Type: EventPositionClosed, Payload: ClosedPayload{
		ID:         c.Position.ID,
		Side:       string(c.Position.Side),
		Lots:       c.Position.Lots,
		OpenPrice:  c.Position.OpenPrice,
		ClosePrice: c.Price,
		RealizedPL: c.Realized,
		Reason:     string(c.Reason),
		Time:       c.Time,
	}}
}

func commentaryEvent(a commentary.Analysis) Event {
	return Event{Type: EventCommentary, Payload: CommentaryPayload{
		Headline:  a.Headline,
		Analysis:  a.Analysis,
		Sentiment: a.Sentiment,
	}}
}
