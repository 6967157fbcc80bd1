// Package dual wraps two store.Storage backends for dual-write: every
// save and delete reaches both, reads come from the primary only.
package dual

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/patternforge/patternforge/internal/store"
)

// Store wraps a primary and secondary backend.
type Store struct {
	primary   store.Storage
	secondary store.Storage
	logger    *slog.Logger
}

// Config holds dual store configuration.
type Config struct {
	Primary   store.Storage
	Secondary store.Storage
	Logger    *slog.Logger
}

// New creates a new dual-write store.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{primary: cfg.Primary, secondary: cfg.Secondary, logger: cfg.Logger}
}

func (s *Store) dualWrite(ctx context.Context, op string, primaryWrite, secondaryWrite func() error) error {
	if err := primaryWrite(); err != nil {
		return err
	}

	go func() {
		if err := secondaryWrite(); err != nil {
			s.logger.Error("dual-write to secondary failed", "operation", op, "error", err)
		}
	}()

	return nil
}

func (s *Store) SaveSession(ctx context.Context, sess *store.Session) error {
	return s.dualWrite(ctx, "SaveSession",
		func() error { return s.primary.SaveSession(ctx, sess) },
		func() error { return s.secondary.SaveSession(context.Background(), sess) },
	)
}

func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	return s.primary.GetSession(ctx, id)
}

func (s *Store) ListSessions(ctx context.Context) ([]*store.Metadata, error) {
	return s.primary.ListSessions(ctx)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.dualWrite(ctx, "DeleteSession",
		func() error { return s.primary.DeleteSession(ctx, id) },
		func() error { return s.secondary.DeleteSession(context.Background(), id) },
	)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.primary.Clear(ctx); err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}
	if err := s.secondary.Clear(ctx); err != nil {
		s.logger.Error("failed to clear secondary backend", "error", err)
	}
	return nil
}

func (s *Store) Close() error {
	primaryErr := s.primary.Close()
	secondaryErr := s.secondary.Close()
	if primaryErr != nil {
		return fmt.Errorf("close primary: %w", primaryErr)
	}
	if secondaryErr != nil {
		return fmt.Errorf("close secondary: %w", secondaryErr)
	}
	return nil
}
