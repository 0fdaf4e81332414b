package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"localpro/internal/infra"
	"localpro/internal/modules/notify"
	"localpro/internal/modules/profile"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume the notification queue and deliver push messages",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		return errors.New("LOCALPRO_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase)
	if err != nil {
		return err
	}
	sender, err := notify.NewFCMSender(ctx, app)
	if err != nil {
		return fmt.Errorf("fcm init: %w", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	h := notify.NewHandler(notify.NewStore(dbPool), profile.NewStore(dbPool), sender, log)
	srv := notify.NewServer(infra.AsynqRedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), cfg.Notify.Concurrency, log)
	if err := srv.Start(notify.NewMux(h)); err != nil {
		return fmt.Errorf("start notification worker: %w", err)
	}
	log.Info("notification worker started", zap.Int("concurrency", cfg.Notify.Concurrency))

	<-ctx.Done()
	srv.Shutdown()
	return nil
}
