package handlers

import (
	"net/http"
	"time"

	"todoTracker/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Limiters - лимитеры по группам маршрутов. nil отключает лимит группы.
type Limiters struct {
	General middleware.Limiter
	Login   middleware.Limiter
	Refresh middleware.Limiter
	Batch   middleware.Limiter
}

type RouterConfig struct {
	Tasks      *TaskHandler
	Batch      *BatchHandler
	Categories *CategoryHandler
	Auth       *AuthHandler
	Health     HealthChecker

	Tokens         middleware.AccessTokenValidator
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
	Limiters       Limiters

	AllowedOrigins []string
	RequestTimeout time.Duration
}

func limit(l middleware.Limiter, keyFn middleware.KeyFunc) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(l, keyFn)
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader, "Idempotency-Key"},
		ExposedHeaders:   []string{middleware.RequestIDHeader, replayedHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", HealthCheck(cfg.Health))

	idem := Idempotency(cfg.Idempotency, cfg.IdempotencyTTL)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limit(cfg.Limiters.General, middleware.KeyByIP))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.With(limit(cfg.Limiters.Login, middleware.KeyByIP)).Post("/login", cfg.Auth.Login)
			r.With(limit(cfg.Limiters.Refresh, middleware.KeyByIP)).Post("/refresh", cfg.Auth.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.Tokens))
				r.Post("/logout", cfg.Auth.Logout)
				r.Get("/me", cfg.Auth.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Tokens))

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", cfg.Tasks.ListTasks)              // GET /tasks
				r.With(idem).Post("/", cfg.Tasks.CreateTask) // POST /tasks

				r.Route("/batch", func(r chi.Router) {
					r.Use(limit(cfg.Limiters.Batch, middleware.KeyByUser))
					r.Use(idem)
					r.Post("/complete", cfg.Batch.Complete)
					r.Post("/delete", cfg.Batch.Delete)
					r.Post("/restore", cfg.Batch.Restore)
					r.Patch("/update", cfg.Batch.Update)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.Tasks.GetTask)
					r.Get("/events", cfg.Tasks.ListEvents)
					r.Get("/categories", cfg.Tasks.ListTaskCategories)

					r.Group(func(r chi.Router) {
						r.Use(idem)
						r.Put("/", cfg.Tasks.UpdateTask)
						r.Patch("/", cfg.Tasks.UpdateTask)
						r.Delete("/", cfg.Tasks.DeleteTask)
						r.Patch("/complete", cfg.Tasks.CompleteTask)
						r.Patch("/restore", cfg.Tasks.RestoreTask)
						r.Post("/categories", cfg.Tasks.AddCategory)
						r.Put("/categories", cfg.Tasks.SyncCategories)
						r.Delete("/categories/{categoryId}", cfg.Tasks.RemoveCategory)
					})
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", cfg.Categories.List)
				r.With(idem).Post("/", cfg.Categories.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.Categories.Get)
					r.With(idem).Put("/", cfg.Categories.Update)
					r.With(idem).Delete("/", cfg.Categories.Delete)
				})
			})
		})
	})

	return otelhttp.NewHandler(r, "todo-api")
}
