package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kxtukI/med.sys-sub000/internal/appointment"
	"github.com/kxtukI/med.sys-sub000/internal/notification"
	"github.com/kxtukI/med.sys-sub000/internal/schedule"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Schedules     *schedule.Service
	Notifications *notification.Service
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        zerolog.Logger
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Slot generation
	r.Get("/appointment_slots/{professional_id}/{health_unit_id}/next_available", nextAvailableDaysHandler(cfg.Schedules))
	r.Get("/appointment_slots/{professional_id}/{health_unit_id}/{date}", appointmentSlotsHandler(cfg.Schedules))

	// Schedule templates
	r.Post("/schedule_templates", createTemplateHandler(cfg.Schedules))
	r.Get("/schedule_templates/{professional_id}", listTemplatesHandler(cfg.Schedules))

	// Appointments
	r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
	r.Get("/appointments/calendar", calendarHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Appointments))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Appointments))

	// Token cancellation
	r.Get("/cancel-by-token/{appointment_id}", cancelByTokenHandler(cfg.Appointments))

	// Notification jobs and recovery
	r.Post("/jobs/run-pending-notifications", runPendingNotificationsHandler(cfg.Notifications))
	r.Post("/jobs/run-late-appointments", runLateAppointmentsHandler(cfg.Notifications))
	r.Post("/notifications/{id}/resend", resendNotificationHandler(cfg.Notifications))

	return r
}
