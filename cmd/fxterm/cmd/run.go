package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxterm/app"
	"github.com/rustyeddy/fxterm/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a live terminal session",
	Long: `Start the terminal with a synthetic price feed and serve it over a
websocket. Without a config file the built-in defaults apply: a $10,000
demo account at 1:100 leverage on EUR/USD, one tick per second.

Examples:
  fxterm run
  fxterm run --config terminal.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.New(cfg, newLogger(cfg)).Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		_ = godotenv.Load()
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
