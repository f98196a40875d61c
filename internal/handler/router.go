package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoArmGo/BookCatalog/internal/metrics"
)

// RouterConfig собирает всё, что нужно для построения маршрутов.
// Metrics может быть nil, тогда /metrics не регистрируется.
type RouterConfig struct {
	Books          *BookHandler
	Users          *UserHandler
	Health         *HealthHandler
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter регистрирует маршруты сервиса и общий набор middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.InstrumentHandler)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Route("/books", func(r chi.Router) {
		r.Get("/", cfg.Books.ListBooks)
		r.Post("/", cfg.Books.CreateBook)
		r.Get("/{id}", cfg.Books.GetBook)
	})
	r.Route("/users", func(r chi.Router) {
		r.Post("/", cfg.Users.CreateUser)
		r.Get("/{id}", cfg.Users.GetUser)
	})
	r.Get("/healthz", cfg.Health.Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "route not found", cfg.Logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed", cfg.Logger)
	})
	return r
}
