package candidate

import (
	"strings"
	"testing"

	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/token"
)

func mkRow(s string, cfg token.Config) Row {
	return Row{Original: strings.ToLower(s), Tokens: token.Tokenize(s, cfg)}
}

func TestGenerateBasicKinds(t *testing.T) {
	cfg := token.Config{SplitMethod: token.ClassChange, MinTokenLen: 2}
	rows := []Row{mkRow("alpha/module1/mem/i0", cfg)}

	res := Generate(rows, Options{Weight: 1.0, Bounds: DefaultBounds()})

	var sawPrefix, sawSubstring bool
	for _, c := range res.Candidates {
		if c.Kind == pattern.KindPrefix && strings.HasPrefix(rows[0].Original, strings.TrimSuffix(c.Text, "*")) {
			sawPrefix = true
		}
		if c.Kind == pattern.KindSubstring {
			sawSubstring = true
		}
	}
	if !sawPrefix {
		t.Error("expected at least one prefix candidate")
	}
	if !sawSubstring {
		t.Error("expected at least one substring candidate")
	}
}

func TestExactOnlyWhenJoinEqualsOriginal(t *testing.T) {
	cfg := token.Config{SplitMethod: token.ClassChange, MinTokenLen: 1}
	// "chip" tokenizes to a single token equal to the whole (normalized)
	// string, so an exact candidate must appear.
	rows := []Row{mkRow("chip", cfg)}
	res := Generate(rows, Options{Weight: 1.0, Bounds: DefaultBounds()})

	found := false
	for _, c := range res.Candidates {
		if c.Kind == pattern.KindExact {
			found = true
			if c.Text != "chip" {
				t.Errorf("exact pattern text = %q, want %q", c.Text, "chip")
			}
		}
	}
	if !found {
		t.Error("expected an exact candidate for a single-token row")
	}
}

func TestNoBareWildcardEmitted(t *testing.T) {
	cfg := token.Config{SplitMethod: token.ClassChange, MinTokenLen: 1}
	rows := []Row{mkRow("x", cfg), mkRow("", cfg)}
	res := Generate(rows, Options{Weight: 1.0, Bounds: DefaultBounds()})
	for _, c := range res.Candidates {
		if c.Text == "*" || strings.Trim(c.Text, "*") == "" {
			t.Errorf("emitted bare-wildcard pattern %q", c.Text)
		}
	}
}

func TestMultiSegmentOrdering(t *testing.T) {
	cfg := token.Config{SplitMethod: token.ClassChange, MinTokenLen: 2}
	rows := []Row{mkRow("alpha/beta/gamma/delta", cfg)}
	res := Generate(rows, Options{Weight: 1.0, Bounds: Bounds{MaxMultiSegments: 3, MaxCandidates: 1000, PerWordSubstrings: 10}})

	var multis []string
	for _, c := range res.Candidates {
		if c.Kind == pattern.KindMulti {
			multis = append(multis, c.Text)
		}
	}
	if len(multis) == 0 {
		t.Fatal("expected multi-segment candidates")
	}
	for _, m := range multis {
		segs := strings.Split(strings.Trim(m, "*"), "*")
		if len(segs) < 2 || len(segs) > 3 {
			t.Errorf("multi candidate %q has %d segments, want 2..3", m, len(segs))
		}
	}
}

func TestDeterministicOrdering(t *testing.T) {
	cfg := token.Config{SplitMethod: token.ClassChange, MinTokenLen: 2}
	rows := []Row{
		mkRow("alpha/module1/mem/i0", cfg),
		mkRow("alpha/module2/io/i1", cfg),
		mkRow("beta/cache/bank0", cfg),
	}

	res1 := Generate(rows, Options{Weight: 1.0, Bounds: DefaultBounds()})
	res2 := Generate(rows, Options{Weight: 1.0, Bounds: DefaultBounds()})

	if len(res1.Candidates) != len(res2.Candidates) {
		t.Fatalf("nondeterministic candidate count: %d vs %d", len(res1.Candidates), len(res2.Candidates))
	}
	for i := range res1.Candidates {
		if res1.Candidates[i].Text != res2.Candidates[i].Text {
			t.Fatalf("nondeterministic ordering at %d: %q vs %q", i, res1.Candidates[i].Text, res2.Candidates[i].Text)
		}
	}
}

func TestMaxCandidatesTruncation(t *testing.T) {
	cfg := token.Config{SplitMethod: token.ClassChange, MinTokenLen: 1}
	var rows []Row
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
	for i := 0; i < 20; i++ {
		rows = append(rows, mkRow(strings.Join(words, "/")+string(rune('a'+i)), cfg))
	}
	res := Generate(rows, Options{Weight: 1.0, Bounds: Bounds{MaxCandidates: 5, MaxMultiSegments: 4, PerWordSubstrings: 100}})
	if len(res.Candidates) != 5 {
		t.Fatalf("expected truncation to 5 candidates, got %d", len(res.Candidates))
	}
	if !res.Truncated {
		t.Error("expected Truncated to be true")
	}
	if res.Generated <= 5 {
		t.Error("expected Generated to report the pre-truncation count")
	}
}

func TestFieldWeightScalesScore(t *testing.T) {
	cfg := token.Config{SplitMethod: token.ClassChange, MinTokenLen: 2}
	rows := []Row{mkRow("alpha/beta", cfg)}

	base := Generate(rows, Options{Weight: 1.0, Field: "f", Bounds: DefaultBounds()})
	weighted := Generate(rows, Options{Weight: 2.0, Field: "f", Bounds: DefaultBounds()})

	if len(base.Candidates) != len(weighted.Candidates) {
		t.Fatal("weight should not change candidate count")
	}
	for i := range base.Candidates {
		if weighted.Candidates[i].Text != base.Candidates[i].Text {
			continue
		}
		if weighted.Candidates[i].Score != base.Candidates[i].Score*2.0 {
			t.Errorf("score not scaled: base=%v weighted=%v", base.Candidates[i].Score, weighted.Candidates[i].Score)
		}
	}
}
