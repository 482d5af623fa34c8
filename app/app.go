// Package app owns the terminal's lifecycle: it wires the journal, engine,
// feed, analyst, and server from configuration, starts the goroutines for
// the chosen mode, and tears everything down in reverse order on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/fxterm/commentary"
	"github.com/rustyeddy/fxterm/config"
	"github.com/rustyeddy/fxterm/feed"
	"github.com/rustyeddy/fxterm/journal"
	"github.com/rustyeddy/fxterm/market"
	"github.com/rustyeddy/fxterm/replay"
	"github.com/rustyeddy/fxterm/server"
	"github.com/rustyeddy/fxterm/sim"
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run starts a live session: the synthetic feed drives the engine and the
// server streams the result. It blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting terminal",
		slog.String("account", a.cfg.Account.ID),
		slog.Float64("balance", a.cfg.Account.Balance),
		slog.String("addr", a.cfg.Server.Addr),
	)

	interval, err := a.cfg.Feed.ParseInterval()
	if err != nil {
		return fmt.Errorf("app: parse tick interval: %w", err)
	}

	j, err := a.openJournal()
	if err != nil {
		return fmt.Errorf("app: open journal: %w", err)
	}

	engine := sim.NewEngine(sim.Account{
		ID:              a.cfg.Account.ID,
		Currency:        a.cfg.Account.Currency,
		Balance:         a.cfg.Account.Balance,
		Leverage:        a.cfg.Account.Leverage,
		MarginCallLevel: a.cfg.Account.MarginCallLevel,
	}, j)

	f := feed.New(
		feed.WithStartPrice(a.cfg.Feed.StartPrice),
		feed.WithVolatility(a.cfg.Feed.Volatility),
		feed.WithSpread(a.cfg.Feed.Spread),
	)
	f.SetTrendBias(a.cfg.Feed.TrendBias)

	history := market.NewHistory(a.cfg.Feed.HistorySize)
	srv := server.New(a.serverConfig(), engine, f, history, a.newAnalyst(), a.logger)

	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	g.Go(func() error {
		return f.Run(ctx, interval, func(t market.Tick) {
			history.Push(t)
			if err := engine.ApplyTick(t); err != nil {
				a.logger.Error("apply tick", slog.String("error", err.Error()))
				return
			}
			srv.OnTick(t)
		})
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Replay feeds a recorded dataset through the engine instead of the
// synthetic walk. Trend control is disabled; everything else behaves as
// in a live session.
func (a *App) Replay(ctx context.Context, path string, delay time.Duration) error {
	ticks, err := replay.Load(path)
	if err != nil {
		return fmt.Errorf("app: load dataset: %w", err)
	}
	a.logger.InfoContext(ctx, "replaying dataset",
		slog.String("path", path),
		slog.Int("ticks", len(ticks)),
	)

	j, err := a.openJournal()
	if err != nil {
		return fmt.Errorf("app: open journal: %w", err)
	}

	engine := sim.NewEngine(sim.Account{
		ID:              a.cfg.Account.ID,
		Currency:        a.cfg.Account.Currency,
		Balance:         a.cfg.Account.Balance,
		Leverage:        a.cfg.Account.Leverage,
		MarginCallLevel: a.cfg.Account.MarginCallLevel,
	}, j)

	history := market.NewHistory(a.cfg.Feed.HistorySize)
	srv := server.New(a.serverConfig(), engine, nil, history, a.newAnalyst(), a.logger)

	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	g.Go(func() error {
		err := replay.Play(ctx, ticks, delay, func(t market.Tick) error {
			history.Push(t)
			if err := engine.ApplyTick(t); err != nil {
				return err
			}
			srv.OnTick(t)
			return nil
		})
		if err != nil {
			return err
		}
		a.logger.Info("dataset complete", slog.Int("ticks", len(ticks)))
		return context.Canceled
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down registered resources in reverse order. Safe to call
// more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openJournal() (journal.Journal, error) {
	var (
		j   journal.Journal
		err error
	)
	switch a.cfg.Journal.Type {
	case "", "memory":
		j = journal.NewMemory()
	case "csv":
		j, err = journal.NewCSV(a.cfg.Journal.ClosesFile, a.cfg.Journal.EquityFile)
	case "sqlite":
		j, err = journal.NewSQLite(a.cfg.Journal.DBPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q", a.cfg.Journal.Type)
	}
	if err != nil {
		return nil, err
	}

	a.closers = append(a.closers, func() {
		if err := j.Close(); err != nil {
			a.logger.Error("close journal", slog.String("error", err.Error()))
		}
	})
	return j, nil
}

func (a *App) newAnalyst() commentary.Analyst {
	key := config.APIKey()
	if key == "" {
		a.logger.Warn("no analyst API key set; commentary will use the fallback",
			slog.String("env", config.APIKeyEnv),
		)
	}
	return commentary.NewGemini(key,
		commentary.WithModel(a.cfg.Analyst.Model),
		commentary.WithLogger(a.logger),
	)
}

func (a *App) serverConfig() server.Config {
	return server.Config{
		Addr:        a.cfg.Server.Addr,
		DepositStep: a.cfg.Account.DepositStep,
	}
}
