// Package api serves slogan generation over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/steveyegge/slogan-gen/internal/generator"
)

// Options configures the router.
type Options struct {
	Service *generator.Service
	Version string

	// Metrics serves /metrics when set
	Metrics http.Handler

	Logger *slog.Logger
}

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	generateH := NewGenerateHandler(opts.Service, logger)
	modelsH := NewModelsHandler(opts.Service)
	healthH := NewHealthHandler(opts.Service.Client(), opts.Version)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, RootResponse{
			Name:        "Slogan Writer-Reviewer API",
			Version:     opts.Version,
			Description: "Multi-agent slogan generation via Writer-Reviewer collaboration",
		})
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthH.Health)
		r.Get("/models", modelsH.List)
		r.Post("/slogans/generate", generateH.Generate)

		// Session history routes
		if store := opts.Service.Store(); store != nil {
			sessionH := NewSessionHandler(store)
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionH.List)
				r.Get("/{id}", sessionH.Get)
				r.Delete("/{id}", sessionH.Delete)
			})
		}
	})

	return r
}
