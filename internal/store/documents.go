package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hirevet/advisor/backend/internal/model/document"
)

// FindDocument resolves a document by its exact, case-sensitive key.
func (s *Store) FindDocument(ctx context.Context, name string) (document.Document, error) {
	var doc document.Document
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return document.Document{}, fmt.Errorf("store: find document %q: %w", name, document.ErrNotFound)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("store: find document %q: %w: %v", name, ErrStorageUnavailable, err)
	}
	return doc, nil
}
