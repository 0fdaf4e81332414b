package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"localpro/internal/infra"
	"localpro/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded SQL schema",
	Long:  `Apply the embedded SQL schema. Every statement is idempotent, so re-running is safe.`,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		return err
	}
	stmts, _ := migrations.Statements()
	log.Info("migrations applied", zap.Int("statements", len(stmts)))
	return nil
}
