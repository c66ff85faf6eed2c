package router

import (
	"net/http"
	"time"

	"jetlag-mailcast/internal/interface/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the HTTP routes of the service
func NewRouter(h *api.Handler, metrics http.Handler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.MethodNotAllowed(h.MethodNotAllowed)
	r.NotFound(h.NotFound)

	r.Route("/api", func(r chi.Router) {
		r.Post("/submit", h.Submit)
		r.Post("/dispatch", h.Dispatch)
	})

	r.Get("/health", h.Health)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return r
}
