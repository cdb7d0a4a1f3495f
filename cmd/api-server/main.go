package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kxtukI/med.sys-sub000/internal/api"
	"github.com/kxtukI/med.sys-sub000/internal/appointment"
	"github.com/kxtukI/med.sys-sub000/internal/clinic"
	"github.com/kxtukI/med.sys-sub000/internal/config"
	"github.com/kxtukI/med.sys-sub000/internal/db"
	"github.com/kxtukI/med.sys-sub000/internal/logging"
	"github.com/kxtukI/med.sys-sub000/internal/notification"
	"github.com/kxtukI/med.sys-sub000/internal/redislock"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
	"github.com/kxtukI/med.sys-sub000/internal/sms"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("api-server", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New("api-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redislock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	clinicRepo := clinic.NewPgRepository(pgPool)
	templateRepo := schedule.NewPgRepository(pgPool)
	apptRepo := appointment.NewPgRepository(pgPool)
	notifRepo := notification.NewPgRepository(pgPool)

	var gateway sms.Gateway
	if cfg.SMSGatewayURL != "" {
		gateway = sms.NewHTTPGateway(cfg.SMSGatewayURL, cfg.SMSGatewayToken, cfg.SMSSender)
	} else {
		log.Warn().Msg("no SMS gateway configured, messages go to the log")
		gateway = sms.NewLogGateway(log)
	}

	locker := redislock.NewRedisBookingLocker(rdb, cfg.LockTTL)
	scheduleSvc := schedule.NewService(templateRepo, apptRepo, log)
	notifSvc := notification.NewService(notifRepo, apptRepo, clinicRepo, gateway, cfg, log)
	apptSvc := appointment.NewService(apptRepo, clinicRepo, scheduleSvc, locker, notifSvc, notifRepo, log)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  apptSvc,
		Schedules:     scheduleSvc,
		Notifications: notifSvc,
		PgPool:        pgPool,
		Redis:         rdb,
		Logger:        log,
		Env:           cfg.Env,
		Version:       version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
