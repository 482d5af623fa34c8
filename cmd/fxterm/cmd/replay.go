package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxterm/app"
)

var replayCmd = &cobra.Command{
	Use:   "replay <dataset>",
	Short: "Replay a recorded tick dataset",
	Long: `Drive the terminal from a recorded dataset instead of the synthetic
feed. The dataset is a CSV of time,bid,ask rows, optionally xz-compressed
or bundled as a zip of CSV files.

Examples:
  fxterm replay data/eurusd.csv
  fxterm replay data/eurusd.csv.xz --delay 50ms
  fxterm replay data/eurusd-2025.zip --config terminal.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayConfigPath string
	replayDelay      time.Duration
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 100*time.Millisecond, "pause between ticks (0 for full speed)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(replayConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, newLogger(cfg)).Replay(ctx, args[0], replayDelay); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	return nil
}
