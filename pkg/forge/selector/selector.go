// Package selector implements the greedy cost-driven pattern selector
// (spec §4.5): at each step it picks the candidate whose addition most
// reduces a weighted cost over false positives, false negatives, pattern
// count, operator count, wildcard count and text length, subject to hard
// budgets on pattern count, FP and FN. It also implements the optional
// inversion pass, which tries solving the complementary problem (include
// and exclude roles swapped) and keeps whichever side is cheaper and
// FP-safe.
package selector

import (
	"sort"

	"github.com/patternforge/patternforge/pkg/forge/bitset"
	"github.com/patternforge/patternforge/pkg/forge/coverage"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
)

// Invert controls whether the selector also tries the complementary
// (NOT-disjunction) solution.
type Invert int

const (
	InvertAuto Invert = iota
	InvertNever
	InvertAlways
)

// Config bundles the selector's tunables.
type Config struct {
	Weights     Weights
	MaxPatterns Budget
	MaxFP       Budget
	MaxFN       Budget
}

// Selection is one completed greedy run: the chosen candidate indices (in
// selection order) plus the resulting coverage, evaluated in whatever
// include/exclude roles the caller supplied to Select.
type Selection struct {
	Indices     []int
	Patterns    []pattern.Pattern
	IncludeBits *bitset.Set
	ExcludeBits *bitset.Set
}

// Select runs the greedy loop against masks already computed in the
// caller's desired include/exclude roles (n = len(include), m =
// len(exclude)).
func Select(cands []pattern.Pattern, masks []coverage.Masks, n, m int, cfg Config) Selection {
	maxPatterns := resolveBudget(cfg.MaxPatterns, n)
	maxFP := resolveBudget(cfg.MaxFP, m)
	maxFN := resolveBudget(cfg.MaxFN, n)

	remaining := make([]int, len(cands))
	for i := range cands {
		remaining[i] = i
	}

	var chosenIdx []int
	var chosenPatterns []pattern.Pattern
	incBits := bitset.New(n)
	excBits := bitset.New(m)

	for {
		if incBits.EqualAllOnes() && !excBits.AnyBit() {
			break
		}
		if maxPatterns >= 0 && len(chosenIdx) >= maxPatterns {
			break
		}

		currentCost := cost(cfg.Weights, excBits.PopCount(), n, incBits.PopCount(), chosenPatterns, nil)

		bestPos := -1
		var bestCost float64
		var bestGain int
		var bestUnionInc, bestUnionExc *bitset.Set

		for pos, idx := range remaining {
			unionInc := incBits.Clone()
			unionInc.Or(masks[idx].Include)
			unionExc := excBits.Clone()
			unionExc.Or(masks[idx].Exclude)

			fpCount := unionExc.PopCount()
			if maxFP >= 0 && fpCount > maxFP {
				continue
			}
			incPop := unionInc.PopCount()
			fnCount := n - incPop
			if maxFN >= 0 && fnCount > maxFN {
				continue
			}

			c := cost(cfg.Weights, fpCount, n, incPop, chosenPatterns, &cands[idx])
			gain := incPop - incBits.PopCount()

			if bestPos == -1 || better(c, gain, cands[idx], bestCost, bestGain, cands[remaining[bestPos]]) {
				bestPos = pos
				bestCost = c
				bestGain = gain
				bestUnionInc = unionInc
				bestUnionExc = unionExc
			}
		}

		if bestPos == -1 {
			break
		}
		if bestCost >= currentCost {
			break
		}

		idx := remaining[bestPos]
		chosenIdx = append(chosenIdx, idx)
		chosenPatterns = append(chosenPatterns, cands[idx])
		incBits = bestUnionInc
		excBits = bestUnionExc
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return Selection{
		Indices:     chosenIdx,
		Patterns:    chosenPatterns,
		IncludeBits: incBits,
		ExcludeBits: excBits,
	}
}

// better reports whether candidate a (cost ca, incremental gain ga) beats
// candidate b (cost cb, gain gb) under spec §4.5's tie-break chain:
// lower cost; on a tie, greater incremental include gain; then fewer
// wildcards; then longer length; then lexicographically earlier text.
func better(ca float64, ga int, a pattern.Pattern, cb float64, gb int, b pattern.Pattern) bool {
	if ca != cb {
		return ca < cb
	}
	if ga != gb {
		return ga > gb
	}
	if a.Wildcards != b.Wildcards {
		return a.Wildcards < b.Wildcards
	}
	if a.Length != b.Length {
		return a.Length > b.Length
	}
	return a.Text < b.Text
}

// cost evaluates the spec §4.5 cost function for the patterns already
// chosen plus an optional hypothetical extra pattern, given the resulting
// fp count and include-bit popcount.
func cost(w Weights, fp, n, incPop int, chosen []pattern.Pattern, extra *pattern.Pattern) float64 {
	fieldCounts := make(map[string]int, len(chosen)+1)
	sumWC, sumLen, total := 0, 0, 0
	for _, p := range chosen {
		fieldCounts[p.Field]++
		sumWC += p.Wildcards
		sumLen += p.Length
		total++
	}
	if extra != nil {
		fieldCounts[extra.Field]++
		sumWC += extra.Wildcards
		sumLen += extra.Length
		total++
	}

	fpW := w.FP.Resolve(fieldCounts, total)
	fnW := w.FN.Resolve(fieldCounts, total)
	patW := w.Pattern.Resolve(fieldCounts, total)
	opW := w.Op.Resolve(fieldCounts, total)
	wcW := w.Wildcard.Resolve(fieldCounts, total)
	lenW := w.Length.Resolve(fieldCounts, total)

	opCount := total - 1
	if opCount < 0 {
		opCount = 0
	}

	return fpW*float64(fp) +
		fnW*float64(n-incPop) +
		patW*float64(total) +
		opW*float64(opCount) +
		wcW*float64(sumWC) +
		lenW*float64(sumLen)
}

// FinalCost exposes the same cost function for a completed selection, used
// to compare a base and an inverted solution on equal footing.
func FinalCost(w Weights, sel Selection, n int) float64 {
	return cost(w, sel.ExcludeBits.PopCount(), n, sel.IncludeBits.PopCount(), sel.Patterns, nil)
}

// Result is the outcome of RunWithInversion: a Selection expressed in the
// ORIGINAL include/exclude roles, plus whether it must be read as NOT(OR
// of Patterns) rather than OR(Patterns).
type Result struct {
	Selection Selection
	Inverted  bool
}

// RunWithInversion implements spec §4.5's invert={never,always,auto}
// policy. masks must be computed in the original include/exclude roles.
// maxFPBudget is the absolute FP budget against the original m exclude
// rows (resolved by the caller, e.g. via resolveBudget/cfg.MaxFP) and is
// re-checked here against the inverted solution's REAL FP count: the
// swapped optimization's own FP count corresponds to the real FN count,
// not the real FP count, so this check cannot be skipped.
func RunWithInversion(cands []pattern.Pattern, masks []coverage.Masks, n, m int, cfg Config, invert Invert, maxFPBudget int) Result {
	base := Select(cands, masks, n, m, cfg)

	if invert == InvertNever {
		return Result{Selection: base, Inverted: false}
	}

	swapped := make([]coverage.Masks, len(masks))
	for i, mk := range masks {
		swapped[i] = coverage.Masks{Include: mk.Exclude, Exclude: mk.Include}
	}
	invertedRaw := Select(cands, swapped, m, n, cfg)

	// Re-derive real-world coverage in ORIGINAL roles for the chosen
	// patterns: the final expression is NOT(OR chosen), so it matches an
	// original row iff the disjunction does NOT match it.
	disjInc := bitset.New(n)
	disjExc := bitset.New(m)
	for _, idx := range invertedRaw.Indices {
		disjInc.Or(masks[idx].Include)
		disjExc.Or(masks[idx].Exclude)
	}
	realInclude := bitset.AllOnes(n)
	realInclude.AndNot(disjInc)
	realExclude := bitset.AllOnes(m)
	realExclude.AndNot(disjExc)

	realFPCount := realExclude.PopCount()
	feasible := maxFPBudget < 0 || realFPCount <= maxFPBudget

	invertedSel := Selection{
		Indices:     invertedRaw.Indices,
		Patterns:    invertedRaw.Patterns,
		IncludeBits: realInclude,
		ExcludeBits: realExclude,
	}

	if !feasible {
		return Result{Selection: base, Inverted: false}
	}

	if invert == InvertAlways {
		return Result{Selection: invertedSel, Inverted: true}
	}

	baseCost := FinalCost(cfg.Weights, base, n)
	invCost := FinalCost(cfg.Weights, invertedSel, n)
	if invCost < baseCost {
		return Result{Selection: invertedSel, Inverted: true}
	}
	return Result{Selection: base, Inverted: false}
}

// SortPatterns orders patterns deterministically by descending Score, then
// fewer wildcards, then greater length, then lexicographically earlier
// text. It ranks by candidate score, not by the greedy loop's cost/gain
// tie-break (see better).
func SortPatterns(pats []pattern.Pattern) {
	sort.SliceStable(pats, func(i, j int) bool {
		a, b := pats[i], pats[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Wildcards != b.Wildcards {
			return a.Wildcards < b.Wildcards
		}
		if a.Length != b.Length {
			return a.Length > b.Length
		}
		return a.Text < b.Text
	})
}
