package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hirevet/advisor/backend/internal/model/document"
	"github.com/hirevet/advisor/backend/internal/prompt"
	sessionsvc "github.com/hirevet/advisor/backend/internal/service/session"
	"github.com/hirevet/advisor/backend/internal/store"
	"github.com/hirevet/advisor/backend/pkg/httpx"
)

// Handler exposes session creation and transcript read-back over HTTP.
type Handler struct {
	controller *sessionsvc.Controller
	registry   *sessionsvc.Registry
	transcript sessionsvc.TranscriptStore
}

// New creates the session handler.
func New(controller *sessionsvc.Controller, registry *sessionsvc.Registry, transcript sessionsvc.TranscriptStore) *Handler {
	return &Handler{
		controller: controller,
		registry:   registry,
		transcript: transcript,
	}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleStart)
	r.Get("/session/{sessionID}/transcript", h.handleTranscript)
}

// startResponse carries the handle fields the presentation layer displays.
type startResponse struct {
	SessionID   string `json:"sessionId"`
	DocumentKey string `json:"documentKey"`
	Resume      string `json:"resume"`
	JD          string `json:"jd"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DocumentKey string `json:"documentKey"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.controller.StartSession(r.Context(), payload.DocumentKey)
	if err != nil {
		httpx.RespondError(w, startStatus(err), err.Error())
		return
	}

	h.registry.Add(sess)

	httpx.RespondJSON(w, http.StatusCreated, startResponse{
		SessionID:   sess.ID,
		DocumentKey: sess.Document.Name,
		Resume:      sess.Document.Resume,
		JD:          sess.Document.JD,
	})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	turns, err := h.transcript.ReadTurns(r.Context(), sessionID)
	if err != nil {
		httpx.RespondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"turns":     turns,
	})
}

// startStatus maps start-time failures to status codes. Each failure kind
// gets a distinct message (the wrapped error text) rather than a generic one.
func startStatus(err error) int {
	switch {
	case errors.Is(err, sessionsvc.ErrDocumentKeyMissing):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, prompt.ErrTemplateMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
