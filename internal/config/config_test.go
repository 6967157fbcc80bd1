package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/patternforge/patternforge/pkg/forge/solve"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := solve.Validate(cfg.Solve); err != nil {
		t.Errorf("default solve config failed validation: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	doc := `
solve:
  mode: exact
  min_token_len: 3
  allowed_patterns: [exact, prefix]
structured:
  max_terms: 5
  weights:
    service: 2.0
    status: 0.5
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Solve.Mode != solve.ModeExact {
		t.Errorf("mode = %q, want exact", cfg.Solve.Mode)
	}
	if cfg.Solve.MinTokenLen != 3 {
		t.Errorf("min_token_len = %d, want 3", cfg.Solve.MinTokenLen)
	}
	if len(cfg.Solve.Allowed) != 2 {
		t.Errorf("allowed_patterns has %d entries, want 2", len(cfg.Solve.Allowed))
	}
	if cfg.Structured.MaxTerms != 5 {
		t.Errorf("max_terms = %d, want 5", cfg.Structured.MaxTerms)
	}
	if cfg.Structured.Weights["service"] != 2.0 {
		t.Errorf("structured weight for service = %v, want 2.0", cfg.Structured.Weights["service"])
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("solve:\n  mode: sideways\n"), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestLoadRejectsUnknownPatternKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("solve:\n  allowed_patterns: [regex]\n"), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown pattern kind")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
