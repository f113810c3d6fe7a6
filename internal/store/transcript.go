package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hirevet/advisor/backend/internal/model/chat"
)

// AppendTurn writes one turn to the session's transcript. The caller is the
// sole writer for any one session id and sequences its own writes; across
// distinct sessions appends may run concurrently.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, role chat.Role, content string, at time.Time) error {
	if !role.Valid() {
		return fmt.Errorf("store: append turn: role %q: %w", role, ErrConstraintViolation)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	turn := chat.Turn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
	if err := s.db.WithContext(ctx).Create(&turn).Error; err != nil {
		return fmt.Errorf("store: append turn: %w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// ReadTurns returns the session's transcript ordered by creation time, ties
// broken by insertion order. An unknown session id yields an empty slice, not
// an error.
func (s *Store) ReadTurns(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	var turns []chat.Turn
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("store: read turns: %w: %v", ErrStorageUnavailable, err)
	}
	return turns, nil
}
