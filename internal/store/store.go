package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hirevet/advisor/backend/internal/model/chat"
	"github.com/hirevet/advisor/backend/internal/model/document"
)

var (
	// ErrStorageUnavailable wraps connectivity and backend failures so callers
	// can distinguish them from data-level conditions.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConstraintViolation is returned when a write carries a role outside
	// {system, user, assistant}.
	ErrConstraintViolation = errors.New("constraint violation")
)

// Store provides append/read access to the transcript log and read-only
// lookup of documents over one shared gorm handle.
type Store struct {
	db *gorm.DB
}

// DSN builds a Postgres DSN from discrete connection settings.
func DSN(host, port, name, user, password, sslMode string) string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		host, port, name, user, password, sslMode)
}

// Open connects to Postgres and prepares the schema. The connection pool is
// kept small: this service targets a handful of simultaneous visits.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(3)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	log.Info().Msg("store: connection pool ready")
	return s, nil
}

// New wraps an already-open gorm handle and prepares the schema. Used by
// tests to run against an in-memory database.
func New(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&chat.Turn{}, &document.Document{}); err != nil {
		return fmt.Errorf("store: auto-migrate: %w", err)
	}
	return nil
}

// Ping verifies connectivity, used by startup checks and the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: ping: %w: %v", ErrStorageUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
