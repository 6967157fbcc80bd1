package solve

import (
	"strings"
	"testing"

	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/selector"
)

func TestSolveSimpleDisjointKeyword(t *testing.T) {
	include := []string{"a/x/fail", "b/y/fail", "c/z/fail"}
	exclude := []string{"a/x/pass", "b/y/pass"}

	res, err := Solve(include, exclude, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metrics.Covered != 3 {
		t.Errorf("covered = %d, want 3", res.Metrics.Covered)
	}
	if res.Metrics.FP != 0 {
		t.Errorf("fp = %d, want 0", res.Metrics.FP)
	}
	if !strings.Contains(res.RawExpr, "fail") {
		t.Errorf("raw_expr = %q, want it to reference \"fail\"", res.RawExpr)
	}
}

func TestSolveUnsolvableExact(t *testing.T) {
	include := []string{"x"}
	exclude := []string{"x"}

	cfg := DefaultConfig()
	cfg.Mode = ModeExact

	res, err := Solve(include, exclude, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Patterns) != 0 {
		t.Errorf("expected no patterns for an unsolvable EXACT case, got %v", res.Patterns)
	}
	if res.Metrics.Covered != 0 {
		t.Errorf("covered = %d, want 0", res.Metrics.Covered)
	}
	if res.Metrics.FP != 0 {
		t.Errorf("fp = %d, want 0 (EXACT mode must never report a false positive)", res.Metrics.FP)
	}
	if res.Metrics.FN != 1 {
		t.Errorf("fn = %d, want 1", res.Metrics.FN)
	}
}

func TestSolveEmptyExclude(t *testing.T) {
	include := []string{"alpha/one", "alpha/two"}

	res, err := Solve(include, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metrics.Covered != len(include) {
		t.Errorf("covered = %d, want %d", res.Metrics.Covered, len(include))
	}
	if res.Metrics.FP != 0 {
		t.Errorf("fp = %d, want 0", res.Metrics.FP)
	}
	if res.Metrics.TotalNegative != 0 {
		t.Errorf("total_negative = %d, want 0", res.Metrics.TotalNegative)
	}
}

func TestSolveEmptyIncludeReturnsEmptyResult(t *testing.T) {
	res, err := Solve(nil, []string{"x", "y"}, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Patterns) != 0 || res.Expr != "" || res.RawExpr != "" {
		t.Errorf("expected a zero-value empty result for empty include, got %+v", res)
	}
}

func TestSolveExactModeNeverReportsFalsePositives(t *testing.T) {
	include := []string{"svc-a/ok", "svc-b/ok", "svc-c/ok"}
	exclude := []string{"svc-a/bad", "svc-b/bad", "other/ok"}

	cfg := DefaultConfig()
	cfg.Mode = ModeExact

	res, err := Solve(include, exclude, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metrics.FP != 0 {
		t.Fatalf("EXACT mode must guarantee fp=0, got %d", res.Metrics.FP)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = Mode("bogus")
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected a config error for an unknown mode")
	}
	if e, ok := err.(*Error); !ok || e.Kind != ErrConfig {
		t.Errorf("expected an ErrConfig, got %v (%T)", err, err)
	}
}

func TestValidateRejectsContradictoryExactMaxFP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeExact
	cfg.MaxFP = selector.Frac(0.1)
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected a config error for EXACT mode with a non-zero max_fp")
	}
}

func TestValidateRejectsNegativeWeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.FP = selector.Scalar(-1)
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected a config error for a negative weight")
	}
}

func TestValidateRejectsUnknownAllowedKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Allowed = map[pattern.Kind]bool{pattern.Kind("bogus-kind"): true}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected a config error for an unknown allowed pattern kind")
	}
}

func TestSolveRespectsMaxPatternsBudget(t *testing.T) {
	include := []string{"alpha/fail", "beta/error", "gamma/broke"}
	exclude := []string{"alpha/pass", "beta/pass", "gamma/pass"}

	cfg := DefaultConfig()
	cfg.MaxPatterns = selector.Frac(1)

	res, err := Solve(include, exclude, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Patterns) > 1 {
		t.Errorf("expected at most 1 pattern under max_patterns=1, got %d", len(res.Patterns))
	}
}

func TestSolveWitnessesAreBounded(t *testing.T) {
	include := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		include = append(include, "item-fail")
	}
	res, err := Solve(include, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Witnesses.TP) > WitnessLimit {
		t.Errorf("tp witnesses = %d, want <= %d", len(res.Witnesses.TP), WitnessLimit)
	}
}
