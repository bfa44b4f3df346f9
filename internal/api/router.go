package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterConfig struct {
	Booking       BookingService
	Notifications NotificationService
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	JWTSecret     string
	AppURL        string
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Get("/appointments", listAppointmentsHandler(cfg.Booking, cfg.AppURL))
		r.Post("/appointments", createAppointmentHandler(cfg.Booking, cfg.AppURL))
		r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Booking, cfg.AppURL))

		r.Get("/schedule", scheduleHandler(cfg.Booking, cfg.AppURL))

		r.Get("/notifications", listNotificationsHandler(cfg.Notifications))
		r.Put("/notifications/{id}", readNotificationHandler(cfg.Notifications))
	})

	return r
}
