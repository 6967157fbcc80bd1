package coverage

import (
	"testing"

	"github.com/patternforge/patternforge/pkg/forge/pattern"
)

func TestComputeBasic(t *testing.T) {
	cands := []pattern.Pattern{
		{Text: "*fail*", Kind: pattern.KindSubstring},
		{Text: "*pass*", Kind: pattern.KindSubstring},
	}
	include := []Target{{Value: "a/x/fail"}, {Value: "b/y/fail"}}
	exclude := []Target{{Value: "a/x/pass"}}

	masks := Compute(cands, include, exclude, 2)
	if masks[0].Include.PopCount() != 2 {
		t.Errorf("*fail* should match both includes, got %d", masks[0].Include.PopCount())
	}
	if masks[0].Exclude.PopCount() != 0 {
		t.Errorf("*fail* should match no excludes, got %d", masks[0].Exclude.PopCount())
	}
	if masks[1].Include.PopCount() != 0 {
		t.Errorf("*pass* should match no includes, got %d", masks[1].Include.PopCount())
	}
	if masks[1].Exclude.PopCount() != 1 {
		t.Errorf("*pass* should match the one exclude, got %d", masks[1].Exclude.PopCount())
	}
}

func TestComputeDontCare(t *testing.T) {
	cands := []pattern.Pattern{{Text: "*din*", Kind: pattern.KindSubstring}}
	include := []Target{{Value: "din"}}
	exclude := []Target{{DontCare: true}}

	masks := Compute(cands, include, exclude, 1)
	if masks[0].Exclude.PopCount() != 1 {
		t.Errorf("don't-care exclude row should always be counted as matched")
	}
}

func TestComputeWorkerShardingMatchesSerial(t *testing.T) {
	var cands []pattern.Pattern
	for i := 0; i < 50; i++ {
		cands = append(cands, pattern.Pattern{Text: "*x*", Kind: pattern.KindSubstring})
	}
	include := []Target{{Value: "xyz"}, {Value: "abc"}}
	exclude := []Target{{Value: "x"}}

	serial := Compute(cands, include, exclude, 1)
	parallel := Compute(cands, include, exclude, 8)

	for i := range cands {
		if serial[i].Include.PopCount() != parallel[i].Include.PopCount() {
			t.Fatalf("mismatch at %d: serial=%d parallel=%d", i, serial[i].Include.PopCount(), parallel[i].Include.PopCount())
		}
	}
}

func TestComputeEmptyCandidates(t *testing.T) {
	masks := Compute(nil, []Target{{Value: "a"}}, nil, 4)
	if len(masks) != 0 {
		t.Errorf("expected no masks for empty candidate list, got %d", len(masks))
	}
}
