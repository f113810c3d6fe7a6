package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/hirevet/advisor/backend/internal/model/chat"
	"github.com/hirevet/advisor/backend/internal/service/ai"
)

const flushTimeout = 5 * time.Second

// Reply is the lazy fragment sequence produced by one SubmitTurn call.
// Single consumer, forward only, not restartable. The transcript always ends
// up reflecting exactly what the consumer observed: on clean completion, on a
// mid-stream backend failure, and on early abandonment alike, whatever text
// accumulated is written as the assistant turn before resources are released.
type Reply struct {
	sess   *Session
	stream *schema.StreamReader[*schema.Message]
	store  TranscriptStore

	mu        sync.Mutex
	buf       strings.Builder
	fragments int
	finished  bool
}

func newReply(sess *Session, stream *schema.StreamReader[*schema.Message], store TranscriptStore) *Reply {
	return &Reply{sess: sess, stream: stream, store: store}
}

// Recv returns the next text fragment. It returns io.EOF after the final
// fragment; any other error means the backend failed mid-stream, in which
// case the partial text (if any) has already been persisted.
//
// The mutex is never held across the blocking stream read, so Text and Close
// stay responsive while a fragment is pending. A Close from another goroutine
// marks the reply finished and signals the producer to stop; the pending read
// then drains and surfaces as io.EOF.
func (r *Reply) Recv() (string, error) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return "", io.EOF
	}
	r.mu.Unlock()

	for {
		chunk, err := r.stream.Recv()

		r.mu.Lock()
		if r.finished {
			// Close won the race while the read was blocked; the flush
			// already ran there.
			r.mu.Unlock()
			return "", io.EOF
		}
		if errors.Is(err, io.EOF) {
			perr := r.finishLocked(r.fragments > 0)
			r.mu.Unlock()
			if perr != nil {
				return "", perr
			}
			return "", io.EOF
		}
		if err != nil {
			genErr := fmt.Errorf("session %s: %w: %v", r.sess.ID, ai.ErrGenerationFailed, err)
			if perr := r.finishLocked(r.fragments > 0); perr != nil {
				genErr = errors.Join(genErr, perr)
			}
			r.mu.Unlock()
			return "", genErr
		}
		if chunk == nil || chunk.Content == "" {
			r.mu.Unlock()
			continue
		}

		r.buf.WriteString(chunk.Content)
		r.fragments++
		content := chunk.Content
		r.mu.Unlock()
		return content, nil
	}
}

// Text returns the text accumulated so far. Valid at any point, including
// after an error or early Close; this is the escape hatch callers use to
// report how much output the failed stream produced.
func (r *Reply) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Close flushes and releases the stream. Called after a caller abandons
// consumption (client disconnect), it still persists the accumulated partial
// text. Idempotent.
func (r *Reply) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return nil
	}
	return r.finishLocked(r.fragments > 0)
}

// finishLocked closes the stream, optionally persists the accumulator as the
// assistant turn, and releases the session's in-flight slot. The persist runs
// on a detached context so a dropped client connection cannot cancel it.
func (r *Reply) finishLocked(persist bool) error {
	r.finished = true
	r.stream.Close()
	defer r.sess.inFlight.Store(false)

	if !persist {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := r.store.AppendTurn(ctx, r.sess.ID, chat.RoleAssistant, r.buf.String(), time.Now().UTC()); err != nil {
		log.Error().Err(err).Str("session", r.sess.ID).Msg("session: assistant turn flush failed")
		return err
	}

	log.Debug().Str("session", r.sess.ID).Int("fragments", r.fragments).Msg("session: assistant turn persisted")
	return nil
}
