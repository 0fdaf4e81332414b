package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "localpro/internal/http"
	"localpro/internal/infra"
	"localpro/internal/modules/booking"
	"localpro/internal/modules/earnings"
	"localpro/internal/modules/feed"
	"localpro/internal/modules/kyc"
	"localpro/internal/modules/notify"
	"localpro/internal/modules/pricing"
	"localpro/internal/modules/profile"
	"localpro/internal/modules/review"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		return fmt.Errorf("firebase init: %w", err)
	}
	uploader, err := infra.NewFirebaseStorage(ctx, app)
	if err != nil {
		return err
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()

	bus := feed.NewRedisBus(redisClient, log)
	publishers := feed.Fanout{bus}
	if cfg.Firebase.DatabaseURL != "" {
		mirror, err := feed.NewRTDBMirror(ctx, app)
		if err != nil {
			return err
		}
		publishers = append(publishers, mirror)
	} else {
		log.Warn("firebase.database_url not set; realtime database mirror disabled")
	}

	asynqClient := asynq.NewClient(infra.AsynqRedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
	defer asynqClient.Close()
	notifier := notify.NewQueue(asynqClient, cfg.Notify.MaxRetry, log)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), cfg.Platform.TaxRate)

	kycSvc := kyc.NewService(kyc.NewStore(dbPool), uploader, notifier, log)

	bookingStore := booking.NewStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, booking.Deps{
		Quoter:   pricingSvc,
		KYC:      kycSvc,
		Feed:     publishers,
		Notifier: notifier,
		Log:      log,
	})

	reviewSvc := review.NewService(review.NewStore(dbPool), bookingSvc, notifier, log)
	earningsSvc := earnings.NewService(bookingStore, cfg.Platform.CommissionRate, cfg.Platform.Currency)
	notifySvc := notify.NewService(notify.NewStore(dbPool))
	profileSvc := profile.NewService(profile.NewStore(dbPool))

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Booking:        bookingSvc,
		KYC:            kycSvc,
		Review:         reviewSvc,
		Earnings:       earningsSvc,
		Notifications:  notifySvc,
		Profile:        profileSvc,
		Pricing:        pricingSvc,
		Feed:           bus,
		Verifier:       verifier,
		Log:            log,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RatePerMinute:  cfg.RateLimit.PerMinute,
		Production:     cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
