package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicwave/clinic-scheduling/internal/appointment"
	"github.com/clinicwave/clinic-scheduling/internal/config"
	"github.com/clinicwave/clinic-scheduling/internal/db"
	"github.com/clinicwave/clinic-scheduling/internal/logging"
	"github.com/clinicwave/clinic-scheduling/internal/notify"
	"github.com/clinicwave/clinic-scheduling/internal/whatsapp"
)

// The reminder worker scans for confirmed appointments entering their
// 24-hour and 1-hour lead windows and sends one WhatsApp reminder per
// window. The appointment_reminders table deduplicates across restarts and
// concurrent workers.
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
		logger.Warn("whatsapp credentials missing, reminders will be logged as failed")
		sender = notify.DisabledSender{}
	default:
		logger.Fatal("whatsapp client init failed", zap.Error(err))
	}

	repo := appointment.NewPgRepository(pool)
	notifySvc := notify.NewService(sender, whatsapp.NewPgStore(pool), logger)

	logger.Info("reminder worker started", zap.Duration("interval", cfg.ReminderInterval))

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	leads := []struct {
		kind appointment.ReminderKind
		lead time.Duration
	}{
		{appointment.Reminder24h, 24 * time.Hour},
		{appointment.Reminder1h, time.Hour},
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			now := time.Now()
			for _, l := range leads {
				// Each pass covers [now+lead, now+lead+interval) so
				// consecutive ticks tile the timeline without gaps.
				windowStart := now.Add(l.lead)
				windowEnd := windowStart.Add(cfg.ReminderInterval)
				sendReminders(ctx, logger, repo, notifySvc, l.kind, windowStart, windowEnd)
			}
		}
	}
}

func sendReminders(
	ctx context.Context,
	logger *zap.Logger,
	repo *appointment.PgRepository,
	notifySvc *notify.Service,
	kind appointment.ReminderKind,
	windowStart, windowEnd time.Time,
) {
	due, err := repo.FindReminderDue(ctx, kind, windowStart, windowEnd)
	if err != nil {
		logger.Error("reminder scan failed", zap.String("kind", string(kind)), zap.Error(err))
		return
	}

	for _, c := range due {
		if err := notifySvc.SendReminder(ctx, c, kind); err != nil {
			logger.Warn("reminder send failed",
				zap.String("appointment_id", c.Appointment.ID.String()),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}
		if err := repo.MarkReminderSent(ctx, c.Appointment.ID, kind); err != nil {
			logger.Error("reminder bookkeeping failed",
				zap.String("appointment_id", c.Appointment.ID.String()),
				zap.Error(err),
			)
		}
	}
}
