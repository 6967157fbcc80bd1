package store

import (
	"context"
	"fmt"
	"log"

	"github.com/patternforge/patternforge/internal/store/clickhouse"
	"github.com/patternforge/patternforge/internal/store/dual"
	"github.com/patternforge/patternforge/internal/store/memory"
	"github.com/patternforge/patternforge/internal/store/sqlite"
)

// FactoryConfig selects and configures a Storage backend.
type FactoryConfig struct {
	// Backend is one of "memory", "sqlite", "clickhouse", "dual".
	Backend string

	SQLitePath     string
	ClickHouseAddr string

	// Dual-write backends, used only when Backend == "dual".
	DualPrimary   string
	DualSecondary string
}

// DefaultFactoryConfig returns sensible defaults: a SQLite-backed store
// next to the binary, matching the teacher's file-based session store's
// own on-disk-by-default posture.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		Backend:        "sqlite",
		SQLitePath:     "./data/patternforge.db",
		ClickHouseAddr: "localhost:9000",
	}
}

// NewStorage creates a Storage implementation based on cfg.
func NewStorage(cfg FactoryConfig) (Storage, error) {
	switch cfg.Backend {
	case "memory":
		log.Printf("using in-memory session storage")
		return memory.New(), nil

	case "sqlite":
		log.Printf("using sqlite session storage: %s", cfg.SQLitePath)
		return sqlite.New(sqlite.DefaultConfig(cfg.SQLitePath))

	case "clickhouse":
		log.Printf("using clickhouse session storage: %s", cfg.ClickHouseAddr)
		chCfg := clickhouse.DefaultConfig()
		chCfg.Conn.Addr = cfg.ClickHouseAddr
		return clickhouse.New(context.Background(), chCfg)

	case "dual":
		primary, err := newBackend(cfg, cfg.DualPrimary)
		if err != nil {
			return nil, fmt.Errorf("creating dual primary: %w", err)
		}
		secondary, err := newBackend(cfg, cfg.DualSecondary)
		if err != nil {
			return nil, fmt.Errorf("creating dual secondary: %w", err)
		}
		log.Printf("using dual-write session storage: %s + %s", cfg.DualPrimary, cfg.DualSecondary)
		return dual.New(dual.Config{Primary: primary, Secondary: secondary}), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite, clickhouse, dual)", cfg.Backend)
	}
}

func newBackend(cfg FactoryConfig, backend string) (Storage, error) {
	sub := cfg
	sub.Backend = backend
	return NewStorage(sub)
}
