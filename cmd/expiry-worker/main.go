package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/config"
	"github.com/clinicwave/clinic-scheduling/internal/db"
	"github.com/clinicwave/clinic-scheduling/internal/logging"
	"github.com/clinicwave/clinic-scheduling/internal/observability/metrics"
	"github.com/clinicwave/clinic-scheduling/internal/waitlist"
)

// The expiry worker sweeps waitlist offers whose acceptance window has
// lapsed, returning those entries to the expired state so the next freed
// slot can go to someone else. Acceptance paths also expire lazily; the
// sweep only bounds how long a dead offer can linger.
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

	m := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)
	repo := waitlist.NewPgRepository(pool)
	svc := waitlist.NewService(repo, nil, nil, nil, cfg.OfferTTL, m, logger)

	logger.Info("offer expiry worker started",
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("offer_ttl", cfg.OfferTTL),
	)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("offer expiry worker stopped")
			return
		case <-ticker.C:
			n, err := svc.ExpireStaleOffers(ctx)
			if err != nil {
				logger.Error("offer expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired stale offers", zap.Int("count", n))
			}
		}
	}
}
