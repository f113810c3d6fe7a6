package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sessionHandler "github.com/hirevet/advisor/backend/internal/handler/session"
	streamHandler "github.com/hirevet/advisor/backend/internal/handler/stream"
	middlewarePkg "github.com/hirevet/advisor/backend/internal/middleware"
	sessionsvc "github.com/hirevet/advisor/backend/internal/service/session"
	"github.com/hirevet/advisor/backend/pkg/httpx"
)

// Pinger is the health-check surface of the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires HTTP routes to core services.
func NewRouter(controller *sessionsvc.Controller, registry *sessionsvc.Registry, transcript sessionsvc.TranscriptStore, pinger Pinger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessions := sessionHandler.New(controller, registry, transcript)
	streams := streamHandler.New(controller, registry)

	r.Route("/api", func(api chi.Router) {
		sessions.RegisterRoutes(api)
		streams.RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pinger.Ping(r.Context()); err != nil {
			httpx.RespondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
