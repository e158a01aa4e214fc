package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/api"
	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/clinic"
	"github.com/clinicwave/clinic-scheduling/internal/config"
	"github.com/clinicwave/clinic-scheduling/internal/db"
	"github.com/clinicwave/clinic-scheduling/internal/logging"
	"github.com/clinicwave/clinic-scheduling/internal/notify"
	"github.com/clinicwave/clinic-scheduling/internal/observability/metrics"
	"github.com/clinicwave/clinic-scheduling/internal/packages"
	"github.com/clinicwave/clinic-scheduling/internal/redisclient"
	"github.com/clinicwave/clinic-scheduling/internal/waitlist"
	"github.com/clinicwave/clinic-scheduling/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redisclient.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer rdb.Close()

	m := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	var sender notify.Sender
	waClient, err := whatsapp.NewClient(whatsapp.Config{
		APIVersion:    cfg.WhatsAppAPIVersion,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AccessToken:   cfg.WhatsAppAccessToken,
		Logger:        logger,
	})
	switch {
	case err == nil:
		sender = waClient
	case errors.Is(err, whatsapp.ErrNotConfigured):
		logger.Warn("whatsapp credentials missing, outbound messages disabled")
		sender = notify.DisabledSender{}
	default:
		logger.Fatal("whatsapp client init failed", zap.Error(err))
	}

	clinicStore := clinic.NewPgStore(pool)
	patientSvc := clinic.NewPatientService(clinicStore, logger)
	msgStore := whatsapp.NewPgStore(pool)
	notifySvc := notify.NewService(sender, msgStore, logger)

	apptRepo := appointment.NewPgRepository(pool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	apptSvc := appointment.NewService(apptRepo, clinicStore, locker, notifySvc, m, logger)

	pkgRepo := packages.NewPgRepository(pool)
	pkgSvc := packages.NewService(pkgRepo, clinicStore, logger)

	wlRepo := waitlist.NewPgRepository(pool)
	wlSvc := waitlist.NewService(wlRepo, clinicStore, apptSvc, notifySvc, cfg.OfferTTL, m, logger)

	// A patient cancellation can fill a waitlist slot, and a completed
	// session can finish its package. Both hooks are wired after
	// construction to keep the dependency graph acyclic.
	apptSvc.SetWaitlistFiller(wlSvc)
	apptSvc.SetPackageCompleter(pkgSvc)

	inbound := notify.NewInboundHandler(notifySvc, wlSvc, msgStore, logger)

	srv := api.NewServer(apptSvc, pkgSvc, wlSvc, patientSvc, inbound, logger)
	router := srv.Router(api.NewHealthHandler(pool, rdb))

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info("api server listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
