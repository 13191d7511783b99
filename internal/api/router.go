package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router wires the API handlers
type Router struct {
	handler        *Handler
	allowedOrigins []string
}

// NewRouter creates a new router
func NewRouter(handler *Handler, allowedOrigins []string) *Router {
	return &Router{
		handler:        handler,
		allowedOrigins: allowedOrigins,
	}
}

// Routes returns the HTTP handler with every route mounted
func (rt *Router) Routes() http.Handler {
	h := rt.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.GetHealth)
	r.Get("/ws", h.HandleWebSocket)

	r.Post("/api/validate-statement", h.ValidateStatement)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", h.GetConfig)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/", h.GetSession)
			r.Post("/pause", h.PauseSession)
			r.Post("/resume", h.ResumeSession)
			r.Post("/stop", h.StopSession)
			r.Post("/fragments", h.PushFragment)
			r.Get("/statements", h.GetSessionStatements)
		})

		r.Route("/journal", func(r chi.Router) {
			r.Get("/sessions", h.GetJournalSessions)
			r.Get("/sessions/{id}/statements", h.GetJournalSessionStatements)
			r.Get("/statements", h.GetJournalStatements)
		})
	})

	return r
}
