package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hirevet/advisor/backend/internal/model/chat"
	"github.com/hirevet/advisor/backend/internal/model/document"
	"github.com/hirevet/advisor/backend/internal/prompt"
)

var (
	// ErrDocumentKeyMissing is returned when no document key was supplied.
	ErrDocumentKeyMissing = errors.New("document key is required")

	// ErrEmptyInput is returned when the submitted text is blank after trimming.
	ErrEmptyInput = errors.New("message text is empty")

	// ErrTurnInFlight rejects a submit while the prior reply stream for the
	// same session has not terminated.
	ErrTurnInFlight = errors.New("previous turn still streaming")
)

// TranscriptStore is the append/read surface the controller needs from the
// transcript log.
type TranscriptStore interface {
	AppendTurn(ctx context.Context, sessionID string, role chat.Role, content string, at time.Time) error
	ReadTurns(ctx context.Context, sessionID string) ([]chat.Turn, error)
}

// DocumentFinder resolves a document key to its two text bodies.
type DocumentFinder interface {
	FindDocument(ctx context.Context, name string) (document.Document, error)
}

// Generator opens one streaming generation per submitted turn.
type Generator interface {
	Stream(ctx context.Context, instruction string, turns []chat.Turn) (*schema.StreamReader[*schema.Message], error)
}

// Session is the per-visit handle: the transcript grouping key plus the
// cached document bodies. It is never persisted as its own record and stops
// existing when the visit ends.
type Session struct {
	ID       string
	Document document.Document

	instruction string
	inFlight    atomic.Bool
}

// Controller sequences one conversation end to end. It is the only component
// that talks to both the transcript store and the generation backend, which
// is what keeps the persisted transcript and the model context in lockstep.
type Controller struct {
	transcript TranscriptStore
	documents  DocumentFinder
	renderer   *prompt.Renderer
	generator  Generator
}

// NewController wires the controller's collaborators.
func NewController(transcript TranscriptStore, documents DocumentFinder, renderer *prompt.Renderer, generator Generator) *Controller {
	return &Controller{
		transcript: transcript,
		documents:  documents,
		renderer:   renderer,
		generator:  generator,
	}
}

// StartSession resolves the document, renders the system instruction, and
// persists it as the session's sole system turn. Any failure is terminal for
// the visit: no session is returned and nothing is written.
func (c *Controller) StartSession(ctx context.Context, documentKey string) (*Session, error) {
	documentKey = strings.TrimSpace(documentKey)
	if documentKey == "" {
		return nil, ErrDocumentKeyMissing
	}

	doc, err := c.documents.FindDocument(ctx, documentKey)
	if err != nil {
		return nil, err
	}

	instruction, err := c.renderer.SystemInstruction(doc)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:          uuid.NewString(),
		Document:    doc,
		instruction: instruction,
	}

	if err := c.transcript.AppendTurn(ctx, sess.ID, chat.RoleSystem, instruction, time.Now().UTC()); err != nil {
		return nil, err
	}

	log.Info().Str("session", sess.ID).Str("document", documentKey).Msg("session: started")
	return sess, nil
}

// SubmitTurn persists the user turn, re-derives the conversation from the
// store, and opens the reply stream. The returned Reply is single-consumer
// and forward-only; it persists the assistant turn when the stream ends, for
// any meaning of "ends" that produced at least one fragment.
//
// A failure after the user turn was written leaves that turn in place; the
// controller does not dedup a resubmission of the same text. Retrying is a
// caller decision.
func (c *Controller) SubmitTurn(ctx context.Context, sess *Session, userText string) (*Reply, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if !sess.inFlight.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("session %s: %w", sess.ID, ErrTurnInFlight)
	}

	reply, err := c.openReply(ctx, sess, text)
	if err != nil {
		sess.inFlight.Store(false)
		return nil, err
	}
	return reply, nil
}

func (c *Controller) openReply(ctx context.Context, sess *Session, text string) (*Reply, error) {
	// The user turn must be durable before the backend is ever invoked.
	if err := c.transcript.AppendTurn(ctx, sess.ID, chat.RoleUser, text, time.Now().UTC()); err != nil {
		return nil, err
	}

	turns, err := c.transcript.ReadTurns(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	// The system instruction travels separately; strip the leading system turn.
	if len(turns) > 0 && turns[0].Role == chat.RoleSystem {
		turns = turns[1:]
	}

	stream, err := c.generator.Stream(ctx, sess.instruction, turns)
	if err != nil {
		return nil, err
	}

	return newReply(sess, stream, c.transcript), nil
}
