package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medilink/clinic-scheduling/internal/appointment"
)

type RouterConfig struct {
	Service   *appointment.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *zap.Logger
	Timezone  *time.Location
	RateLimit int
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Second))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandler(cfg.Service, cfg.Timezone)

	r.Route("/doctors/{id}", func(r chi.Router) {
		r.Get("/availability", h.GetAvailability)
		r.Get("/schedule", h.GetDaySchedule)

		r.Get("/working-hours", h.ListWorkingHours)
		r.Put("/working-hours/{weekday}", h.SetWorkingHours)
		r.Delete("/working-hours/{weekday}", h.DisableWorkingDay)

		r.Post("/time-off", h.AddTimeOff)
		r.Get("/time-off", h.ListTimeOff)
		r.Delete("/time-off/{timeOffID}", h.RemoveTimeOff)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.BookAppointment)
		r.Get("/", h.ListAppointments)
		r.Get("/{id}", h.GetAppointment)
		r.Post("/{id}/cancel", h.CancelAppointment)
		r.Post("/{id}/complete", h.CompleteAppointment)
	})

	return r
}
