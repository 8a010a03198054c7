package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/clinic"
	"github.com/carewell/clinic-scheduling/internal/storage"
)

type RouterConfig struct {
	Scheduler *clinic.Scheduler
	Images    storage.ImageStore
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Log       zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(IdentityMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandlers(cfg.Scheduler, cfg.Images, cfg.Log)

	r.Post("/sync-user", h.SyncUser)
	r.Get("/me", h.Me)
	r.Get("/users", h.ListUsers)

	r.Get("/doctors", h.ListDoctors)
	r.Post("/doctors", h.CreateDoctor)
	r.Delete("/doctors/{id}", h.DeleteDoctor)

	r.Get("/services", h.ListServices)
	r.Post("/services", h.CreateService)

	r.Get("/slots", h.ListSlots)
	r.Get("/availability", h.Availability)

	r.Post("/appointments", h.CreateAppointment)
	r.Get("/appointments", h.ListAppointments)
	r.Patch("/appointments/{id}", h.SetAppointmentStatus)

	return r
}
