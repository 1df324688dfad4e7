package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hushbox/internal/domain"
)

// RouterConfig carries the router-level knobs.
type RouterConfig struct {
	RequireHTTPS bool
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(SecurityHeaders(SecurityHeadersConfig{RequireHTTPS: cfg.RequireHTTPS}))
	r.Use(ContentLengthValidator(domain.MaxRequestBodySize))

	r.Get("/health", h.HandleHealth)

	r.Route("/api/secrets", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Route("/{id:[0-9a-fA-F-]{36}}", func(r chi.Router) {
			r.Post("/view", h.HandleView)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
		})
	})

	r.Post("/internal/reap", h.HandleReap)

	return r
}
