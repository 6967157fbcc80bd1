// Package memory provides an in-memory store.Storage implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/patternforge/patternforge/internal/store"
)

// Store is an in-memory session store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*store.Session
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{sessions: make(map[string]*store.Session)}
}

func (s *Store) SaveSession(ctx context.Context, sess *store.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if err := store.ValidateID(sess.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*store.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Metadata, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, &store.Metadata{
			ID:          sess.ID,
			Description: sess.Description,
			Mode:        sess.Mode,
			CreatedAt:   sess.CreatedAt,
			SizeBytes:   int64(len(sess.Request) + len(sess.Result)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := store.ValidateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*store.Session)
	return nil
}

func (s *Store) Close() error { return nil }
