// Package server exposes the terminal over a websocket: it streams ticks,
// account snapshots, and closure events, and accepts the order, close,
// deposit, trend, sizing, and commentary commands. Rendering is the
// client's problem.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/fxterm/commentary"
	"github.com/rustyeddy/fxterm/feed"
	"github.com/rustyeddy/fxterm/indicators"
	"github.com/rustyeddy/fxterm/market"
	"github.com/rustyeddy/fxterm/risk"
	"github.com/rustyeddy/fxterm/sim"
)

const (
	commentaryTimeout = 20 * time.Second

	// averagePeriod is the lookback for the moving averages handed to the
	// analyst.
	averagePeriod = 20
)

// Config holds the server parameters.
type Config struct {
	Addr string

	// DepositStep is the amount credited by a deposit command that does
	// not name one.
	DepositStep float64
}

// Server wires the engine, feed, history, and analyst to the websocket
// hub. It implements sim.ClosedListener so automatic closures stream out
// as they happen.
type Server struct {
	cfg     Config
	engine  *sim.Engine
	feed    *feed.Feed // nil when replaying a recorded dataset
	history *market.History
	analyst commentary.Analyst
	hub     *Hub
	logger  *slog.Logger
}

func New(cfg Config, engine *sim.Engine, f *feed.Feed, history *market.History, analyst commentary.Analyst, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		feed:    f,
		history: history,
		analyst: analyst,
		logger:  logger.With(slog.String("component", "server")),
	}
	s.hub = newHub(logger, s.handleCommand, s.handleConnect)
	engine.SetListener(s)
	return s
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{Addr: s.cfg.Addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(ctx)
	})

	g.Go(func() error {
		s.logger.Info("listening", slog.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// OnTick publishes the tick and the refreshed account state. The app loop
// calls this after the engine has applied the tick.
func (s *Server) OnTick(t market.Tick) {
	s.hub.Broadcast(tickEvent(t, market.Classify(s.history.Ticks())))
	s.hub.Broadcast(accountEvent(s.engine.Snapshot()))
	s.hub.Broadcast(positionsEvent(s.engine.Positions(), t))
}

// OnPositionClosed implements sim.ClosedListener for engine-initiated
// closures (stop-loss, take-profit, margin call).
func (s *Server) OnPositionClosed(c sim.Closure) {
	s.logger.Info("position closed",
		slog.String("position_id", c.Position.ID),
		slog.String("reason", string(c.Reason)),
		slog.Float64("realized_pl", c.Realized),
	)
	s.hub.Broadcast(closedEvent(c))
}

// handleConnect seeds a new client with the current state.
func (s *Server) handleConnect(c *client) {
	tick := s.engine.Tick()
	if tick.IsZero() {
		return
	}
	c.sendEvent(tickEvent(tick, market.Classify(s.history.Ticks())))
	c.sendEvent(accountEvent(s.engine.Snapshot()))
	c.sendEvent(positionsEvent(s.engine.Positions(), tick))
}

func (s *Server) handleCommand(c *client, cmd Command) {
	switch cmd.Action {
	case "order":
		s.handleOrder(c, cmd)

	case "close":
		closure, err := s.engine.ClosePosition(cmd.PositionID)
		if err != nil {
			c.sendEvent(errorEvent(rejectionCode(err), err.Error()))
			return
		}
		s.hub.Broadcast(closedEvent(closure))
		s.hub.Broadcast(accountEvent(s.engine.Snapshot()))

	case "close_all":
		closures, err := s.engine.CloseAll(sim.CloseManual)
		if err != nil {
			c.sendEvent(errorEvent("REJECTED", err.Error()))
			return
		}
		for _, closure := range closures {
			s.hub.Broadcast(closedEvent(closure))
		}
		s.hub.Broadcast(accountEvent(s.engine.Snapshot()))

	case "deposit":
		amount := cmd.Amount
		if amount == 0 {
			amount = s.cfg.DepositStep
		}
		if err := s.engine.Deposit(amount); err != nil {
			c.sendEvent(errorEvent("REJECTED", err.Error()))
			return
		}
		s.hub.Broadcast(accountEvent(s.engine.Snapshot()))

	case "trend":
		if s.feed == nil {
			c.sendEvent(errorEvent("REJECTED", "trend control unavailable during replay"))
			return
		}
		s.feed.SetTrendBias(cmd.Bias)

	case "commentary":
		s.requestCommentary(c)

	case "size":
		s.handleSizing(c, cmd)

	default:
		c.sendEvent(errorEvent("BAD_COMMAND", "unknown action "+cmd.Action))
	}
}

func (s *Server) handleOrder(c *client, cmd Command) {
	p, err := s.engine.PlaceOrder(sim.Side(cmd.Side), cmd.Lots, cmd.StopLoss, cmd.TakeProfit)
	if err != nil {
		c.sendEvent(errorEvent(rejectionCode(err), err.Error()))
		return
	}

	s.logger.Info("position opened",
		slog.String("position_id", p.ID),
		slog.String("side", string(p.Side)),
		slog.Float64("lots", p.Lots),
		slog.Float64("open_price", p.OpenPrice),
	)

	tick := s.engine.Tick()
	s.hub.Broadcast(Event{Type: EventPositionOpened, Payload: PositionPayload{
		ID:         p.ID,
		Side:       string(p.Side),
		Lots:       p.Lots,
		OpenPrice:  p.OpenPrice,
		OpenTime:   p.OpenTime,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		FloatingPL: sim.FloatingPL(p, tick),
	}})
	s.hub.Broadcast(accountEvent(s.engine.Snapshot()))
}

// handleSizing suggests a lot size for the requesting client. The entry is
// the fill side's current quote, matching what an order would get.
func (s *Server) handleSizing(c *client, cmd Command) {
	tick := s.engine.Tick()
	if tick.IsZero() {
		c.sendEvent(errorEvent("NO_PRICE", "no market price yet"))
		return
	}
	side := sim.Side(cmd.Side)
	if !side.Valid() {
		c.sendEvent(errorEvent("REJECTED", "side must be BUY or SELL"))
		return
	}
	if cmd.StopLoss == nil {
		c.sendEvent(errorEvent("REJECTED", "sizing needs a stop loss"))
		return
	}

	entry := tick.Ask
	if side == sim.Sell {
		entry = tick.Bid
	}

	res, err := risk.SuggestLots(risk.Inputs{
		Equity:       s.engine.Snapshot().Equity,
		RiskFraction: cmd.RiskPct,
		EntryPrice:   entry,
		StopPrice:    *cmd.StopLoss,
	})
	if err != nil {
		c.sendEvent(errorEvent("REJECTED", err.Error()))
		return
	}

	payload := SizingPayload{
		Lots:       res.Lots,
		StopPips:   res.StopPips,
		RiskAmount: res.RiskAmount,
	}
	if cmd.TakeProfit != nil {
		payload.RewardRisk = risk.RewardRisk(entry, *cmd.StopLoss, *cmd.TakeProfit)
	}
	c.sendEvent(Event{Type: EventSizing, Payload: payload})
}

// requestCommentary asks the analyst off the tick path and sends the
// result only to the requesting client. The analyst never fails; its
// fallback stands in for any upstream trouble.
func (s *Server) requestCommentary(c *client) {
	tick := s.engine.Tick()
	if tick.IsZero() {
		c.sendEvent(errorEvent("NO_PRICE", "no market price yet"))
		return
	}

	ticks := s.history.Ticks()
	req := commentary.Request{
		Price: tick.Bid,
		Trend: market.Classify(ticks),
	}
	// Short histories just omit the averages from the analyst's context.
	if v, err := indicators.SMA(ticks, averagePeriod); err == nil {
		req.SMA = v
	}
	if v, err := indicators.EMA(ticks, averagePeriod); err == nil {
		req.EMA = v
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), commentaryTimeout)
		defer cancel()

		analysis := commentary.Fallback()
		if s.analyst != nil {
			analysis = s.analyst.Analyze(ctx, req)
		}
		c.sendEvent(commentaryEvent(analysis))
	}()
}
