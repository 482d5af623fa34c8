package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxterm/config"
)

var rootCmd = &cobra.Command{
	Use:   "fxterm",
	Short: "A simulated FX trading terminal with leveraged margin accounting",
	Long: `Fxterm is a simulated foreign-exchange trading terminal written in Go.

It provides:
  - A synthetic random-walk price feed with steerable trend bias
  - Leveraged long/short positions with stop-loss and take-profit orders
  - Margin accounting with automatic liquidation below the margin call level
  - A websocket server that streams ticks, account state, and trade events
  - Replay of recorded tick datasets (CSV, xz-compressed, or zip bundles)
  - AI market commentary with a fixed fallback when the upstream is down

Complete documentation is available at https://github.com/rustyeddy/fxterm`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
