// README: Entry point; cobra root command for the API server, notification worker and migrations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"localpro/internal/config"
	"localpro/internal/infra"
)

var rootCmd = &cobra.Command{
	Use:   "localpro",
	Short: "Hyperlocal services marketplace backend",
	Long: `localpro runs the booking API (serve), the push notification worker (worker)
and applies the embedded database schema (migrate). Configuration comes from
config.yaml and LOCALPRO_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config and builds the process logger shared by every command.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := infra.NewLogger(cfg.Env, cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}
