package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kxtukI/med.sys-sub000/internal/appointment"
	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/config"
	"github.com/kxtukI/med.sys-sub000/internal/db"
	"github.com/kxtukI/med.sys-sub000/internal/logging"
	"github.com/kxtukI/med.sys-sub000/internal/notification"
	"github.com/kxtukI/med.sys-sub000/internal/sms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("notify-worker", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New("notify-worker", cfg.Env)
	log.Info().
		Str("env", cfg.Env).
		Dur("dispatch_interval", cfg.DispatchInterval).
		Dur("escalate_interval", cfg.EscalateInterval).
		Msg("notify-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	clinicRepo := clinic.NewPgRepository(pgPool)
	apptRepo := appointment.NewPgRepository(pgPool)
	notifRepo := notification.NewPgRepository(pgPool)

	var gateway sms.Gateway
	if cfg.SMSGatewayURL != "" {
		gateway = sms.NewHTTPGateway(cfg.SMSGatewayURL, cfg.SMSGatewayToken, cfg.SMSSender)
	} else {
		log.Warn().Msg("no SMS gateway configured, messages go to the log")
		gateway = sms.NewLogGateway(log)
	}

	svc := notification.NewService(notifRepo, apptRepo, clinicRepo, gateway, cfg, log)

	// Run both jobs once at startup, then on their own intervals.
	runDispatch(rootCtx, svc, log)
	runEscalate(rootCtx, svc, log)

	dispatchTicker := time.NewTicker(cfg.DispatchInterval)
	defer dispatchTicker.Stop()

	escalateTicker := time.NewTicker(cfg.EscalateInterval)
	defer escalateTicker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping notify-worker")
			return
		case <-dispatchTicker.C:
			runDispatch(rootCtx, svc, log)
		case <-escalateTicker.C:
			runEscalate(rootCtx, svc, log)
		}
	}
}

func runDispatch(ctx context.Context, svc *notification.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	if err := svc.DispatchDue(runCtx); err != nil {
		log.Error().Err(err).Msg("dispatch run error")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("dispatch run complete")
}

func runEscalate(ctx context.Context, svc *notification.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	if err := svc.EscalateLate(runCtx); err != nil {
		log.Error().Err(err).Msg("late-appointment run error")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("late-appointment run complete")
}
