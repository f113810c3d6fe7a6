package stream

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/hirevet/advisor/backend/internal/service/ai"
	sessionsvc "github.com/hirevet/advisor/backend/internal/service/session"
	"github.com/hirevet/advisor/backend/internal/store"
	"github.com/hirevet/advisor/backend/pkg/httpx"
)

// Handler relays reply fragments to the client over Server-Sent Events.
type Handler struct {
	controller *sessionsvc.Controller
	registry   *sessionsvc.Registry
}

// New creates the stream handler.
func New(controller *sessionsvc.Controller, registry *sessionsvc.Registry) *Handler {
	return &Handler{controller: controller, registry: registry}
}

// RegisterRoutes mounts the streaming route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/stream", h.handleStream)
}

// Event is one SSE frame of a reply stream.
type Event struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Partial   bool   `json:"partial,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")

	sess, ok := h.registry.Get(sessionID)
	if !ok {
		httpx.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	reply, err := h.controller.SubmitTurn(r.Context(), sess, message)
	if err != nil {
		// Turn-scoped failure before any output; the session stays usable.
		httpx.RespondError(w, submitStatus(err), err.Error())
		return
	}
	defer reply.Close()

	httpx.SetupSSEHeaders(w)
	httpx.SendSSEChunk(w, flusher, Event{Event: "start", SessionID: sessionID})

	for {
		fragment, err := reply.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("stream: generation failed")
			httpx.SendSSEChunk(w, flusher, Event{
				Event:     "error",
				SessionID: sessionID,
				Partial:   reply.Text() != "",
				Error:     err.Error(),
			})
			return
		}

		httpx.SendSSEChunk(w, flusher, Event{
			Event:     "delta",
			SessionID: sessionID,
			Content:   fragment,
		})
	}

	httpx.SendSSEChunk(w, flusher, Event{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply.Text(),
	})
	httpx.SendSSEChunk(w, flusher, Event{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Info().Str("session", sessionID).Msg("stream: reply completed")
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, sessionsvc.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, sessionsvc.ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrTranscriptCorrupt):
		return http.StatusInternalServerError
	case errors.Is(err, ai.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
