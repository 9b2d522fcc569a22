package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/angeldev7/clinic-scheduling/internal/booking"
)

type RouterConfig struct {
	Service *booking.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
	// Location is used to read calendar dates from query strings.
	Location *time.Location
}

func NewRouter(cfg RouterConfig) http.Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	h := &handlers{svc: cfg.Service, loc: loc}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger.With().Str("component", "http").Logger()))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/participants", func(r chi.Router) {
		r.Post("/", h.registerParticipant)
		r.Get("/", h.listParticipants)
		r.Get("/{id}", h.getParticipant)
		r.Post("/{id}/activate", h.activateParticipant)
		r.Post("/{id}/deactivate", h.deactivateParticipant)
	})

	r.Route("/clinicians/{id}", func(r chi.Router) {
		r.Put("/slots", h.configureSlots)
		r.Get("/availability", h.availability)
		r.Get("/appointments", h.clinicianAppointments)
		r.Get("/stats", h.stats)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.createAppointment)
		r.Get("/{id}", h.getAppointment)
		r.Post("/{id}/confirm", h.confirmAppointment)
		r.Post("/{id}/cancel", h.cancelAppointment)
		r.Post("/{id}/complete", h.completeAppointment)
	})

	r.Get("/reports/summary", h.report)

	return r
}
