// Package sqlite provides a SQLite-backed store.Storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/patternforge/patternforge/internal/store"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_sessions.up.sql
var migration001SQL string

// Config holds SQLite store configuration.
type Config struct {
	DBPath string
}

// DefaultConfig returns the default SQLite configuration.
func DefaultConfig(dbPath string) Config {
	return Config{DBPath: dbPath}
}

// Store is a SQLite-backed session store. Unlike the teacher's telemetry
// store, sessions are written once per solve call rather than streamed at
// ingest volume, so writes go straight to the database instead of through
// a batching writer goroutine.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) a SQLite database at cfg.DBPath and runs
// its migration.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(migration001SQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migration: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) SaveSession(ctx context.Context, sess *store.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if err := store.ValidateID(sess.ID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, description, mode, created_at, request, result)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			mode        = excluded.mode,
			created_at  = excluded.created_at,
			request     = excluded.request,
			result      = excluded.result
	`, sess.ID, sess.Description, string(sess.Mode), sess.CreatedAt.UTC(), []byte(sess.Request), []byte(sess.Result))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}

	var sess store.Session
	var mode string
	var created time.Time
	var request, result []byte
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, mode, created_at, request, result
		FROM sessions WHERE id = ?
	`, id)
	if err := row.Scan(&sess.ID, &sess.Description, &mode, &created, &request, &result); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	sess.Mode = store.Mode(mode)
	sess.CreatedAt = created
	sess.Request = request
	sess.Result = result
	return &sess, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*store.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, mode, created_at, length(request) + length(result)
		FROM sessions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []*store.Metadata
	for rows.Next() {
		m := &store.Metadata{}
		var mode string
		if err := rows.Scan(&m.ID, &m.Description, &mode, &m.CreatedAt, &m.SizeBytes); err != nil {
			return nil, fmt.Errorf("scanning session metadata: %w", err)
		}
		m.Mode = store.Mode(mode)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := store.ValidateID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return fmt.Errorf("clearing sessions: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
