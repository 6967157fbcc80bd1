// +build integration

package clickhouse

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/patternforge/patternforge/internal/store"
)

// TestClickHouseIntegration exercises SaveSession/GetSession/ListSessions
// against a real ClickHouse instance (set PATTERNFORGE_CLICKHOUSE_ADDR,
// defaults to localhost:9000). Run with -tags=integration.
func TestClickHouseIntegration(t *testing.T) {
	addr := os.Getenv("PATTERNFORGE_CLICKHOUSE_ADDR")
	if addr == "" {
		addr = "localhost:9000"
	}

	cfg := DefaultConfig()
	cfg.Conn.Addr = addr

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, cfg)
	if err != nil {
		t.Skipf("clickhouse not reachable at %s: %v", addr, err)
	}
	defer s.Close()

	sess := &store.Session{
		ID:        "integration-test-session",
		Mode:      store.ModeSingle,
		CreatedAt: time.Now().UTC(),
		Request:   json.RawMessage(`{"include":["a"]}`),
		Result:    json.RawMessage(`{"expr":"P1"}`),
	}

	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "integration-test-session")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Mode != store.ModeSingle {
		t.Errorf("mode = %q, want %q", got.Mode, store.ModeSingle)
	}

	if _, err := s.ListSessions(ctx); err != nil {
		t.Errorf("ListSessions failed: %v", err)
	}
}
