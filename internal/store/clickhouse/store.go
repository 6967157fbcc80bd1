// Package clickhouse provides a ClickHouse-backed store.Storage
// implementation, intended as the analytical secondary in a dual.Store:
// an append-only log of every solve session, good for trend queries
// ("false positive rate over the last week") that a point-lookup
// sqlite/memory primary isn't shaped for.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/patternforge/patternforge/internal/store"
)

const sessionsTableDDL = `
	CREATE TABLE IF NOT EXISTS sessions (
		id          String,
		description String,
		mode        String,
		created_at  DateTime64(3),
		request     String,
		result      String
	) ENGINE = ReplacingMergeTree(created_at)
	ORDER BY id
`

// Config holds ClickHouse store configuration.
type Config struct {
	Conn *ConnectionConfig
}

// DefaultConfig returns the default ClickHouse store configuration.
func DefaultConfig() Config {
	return Config{Conn: DefaultConnectionConfig()}
}

// Store is a ClickHouse-backed session store.
type Store struct {
	conn chdriver.Conn
}

// New connects to ClickHouse and ensures the sessions table exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	conn, err := Connect(ctx, cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("connecting to clickhouse: %w", err)
	}
	if err := conn.Exec(ctx, sessionsTableDDL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) SaveSession(ctx context.Context, sess *store.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if err := store.ValidateID(sess.ID); err != nil {
		return err
	}
	return s.conn.Exec(ctx, `
		INSERT INTO sessions (id, description, mode, created_at, request, result)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Description, string(sess.Mode), sess.CreatedAt.UTC(), string(sess.Request), string(sess.Result))
}

func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}

	row := s.conn.QueryRow(ctx, `
		SELECT id, description, mode, created_at, request, result
		FROM sessions FINAL WHERE id = ? LIMIT 1
	`, id)

	var sess store.Session
	var mode, request, result string
	var created time.Time
	if err := row.Scan(&sess.ID, &sess.Description, &mode, &created, &request, &result); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	sess.Mode = store.Mode(mode)
	sess.CreatedAt = created
	sess.Request = []byte(request)
	sess.Result = []byte(result)
	return &sess, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*store.Metadata, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, description, mode, created_at, length(request) + length(result)
		FROM sessions FINAL ORDER BY created_at DESC
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

// DeleteSession inserts a ClickHouse tombstone row with an empty
// description, mode and request/result body, relying on ReplacingMergeTree's dedup-by-id-on-merge
// behavior used alongside GetSession's FINAL read. A true DELETE would
// need a mutation statement; this is the kept-simple, eventually-consistent
// analog, since the canonical delete always goes through the primary.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := store.ValidateID(id); err != nil {
		return err
	}
	return s.conn.Exec(ctx, `
		INSERT INTO sessions (id, description, mode, created_at, request, result)
		VALUES (?, '', '', ?, '', '')
	`, id, time.Now().UTC())
}

func (s *Store) Clear(ctx context.Context) error {
	return s.conn.Exec(ctx, `TRUNCATE TABLE sessions`)
}

func (s *Store) Close() error { return s.conn.Close() }
