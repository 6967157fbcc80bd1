// Package refine implements the two post-selection honing passes of
// spec §4.6-4.7: expansion specializes each chosen pattern into the
// longest form that still covers exactly the same rows, and refinement
// tries to replace two or more chosen patterns with one pool (or
// synthesized) pattern that supercovers them without widening the FP
// budget. Both passes are monotone: neither ever increases pattern count,
// false positives, or shrinks coverage.
package refine

import (
	"sort"
	"strings"
	"unicode"

	"github.com/patternforge/patternforge/pkg/forge/bitset"
	"github.com/patternforge/patternforge/pkg/forge/coverage"
	"github.com/patternforge/patternforge/pkg/forge/glob"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/token"
)

const maxDelimiterPositions = 10

func isDelimiter(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// --- Expansion (spec §4.7) ---------------------------------------------

// Expand specializes each chosen pattern (returning a new slice; the
// caller's slice is untouched) to the longest prefix-anchored form that
// matches exactly the same include/exclude rows.
func Expand(chosen []pattern.Pattern, include, exclude []coverage.Target) []pattern.Pattern {
	out := make([]pattern.Pattern, len(chosen))
	for i, p := range chosen {
		out[i] = expandOne(p, include, exclude)
	}
	return out
}

func expandOne(p pattern.Pattern, include, exclude []coverage.Target) pattern.Pattern {
	covered := coveredValues(p, include)
	if len(covered) == 0 {
		return p
	}
	prefix := longestCommonPrefix(covered)
	if prefix == "" {
		return p
	}

	baseInc, baseExc := matchSignature(p.Text, include, exclude)
	positions := delimiterPositions(prefix, maxDelimiterPositions)

	for _, pos := range positions {
		if pos <= 0 || pos > len([]rune(prefix)) {
			continue
		}
		text := string([]rune(prefix)[:pos]) + "*"
		if text == p.Text {
			continue
		}
		inc, exc := matchSignature(text, include, exclude)
		if inc.Equal(baseInc) && exc.PopCount() <= baseExc.PopCount() {
			specialized := p
			specialized.Text = text
			specialized.Kind = pattern.KindPrefix
			specialized.Wildcards = glob.Wildcards(text)
			specialized.Length = glob.Length(text)
			return specialized
		}
	}

	return p
}

// coveredValues returns the include row values a pattern currently
// matches.
func coveredValues(p pattern.Pattern, include []coverage.Target) []string {
	var out []string
	for _, t := range include {
		if glob.Match(p.Text, t.Value) {
			out = append(out, t.Value)
		}
	}
	return out
}

func matchSignature(text string, include, exclude []coverage.Target) (*bitset.Set, *bitset.Set) {
	inc := bitset.New(len(include))
	for i, t := range include {
		if glob.Match(text, t.Value) {
			inc.SetBit(i)
		}
	}
	exc := bitset.New(len(exclude))
	for i, t := range exclude {
		if t.DontCare || glob.Match(text, t.Value) {
			exc.SetBit(i)
		}
	}
	return inc, exc
}

func longestCommonPrefix(values []string) string {
	if len(values) == 0 {
		return ""
	}
	prefix := values[0]
	for _, v := range values[1:] {
		prefix = commonPrefix(prefix, v)
		if prefix == "" {
			return ""
		}
	}
	return prefix
}

func commonPrefix(a, b string) string {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	i := 0
	for i < n && ra[i] == rb[i] {
		i++
	}
	return string(ra[:i])
}

// delimiterPositions returns truncation lengths within prefix at which a
// delimiter rune was just consumed, ordered longest-first and capped at
// max entries (keeping the longest/most-specific ones when there are
// more candidates than the cap).
func delimiterPositions(prefix string, max int) []int {
	runes := []rune(prefix)
	seen := make(map[int]bool)
	var positions []int
	for i, r := range runes {
		if isDelimiter(r) {
			pos := i + 1
			if !seen[pos] {
				seen[pos] = true
				positions = append(positions, pos)
			}
		}
	}
	if !seen[len(runes)] {
		positions = append(positions, len(runes))
	}
	sort.Ints(positions)
	if len(positions) > max {
		positions = positions[len(positions)-max:]
	}
	for i, j := 0, len(positions)-1; i < j; i, j = i+1, j-1 {
		positions[i], positions[j] = positions[j], positions[i]
	}
	return positions
}

// --- Refinement (spec §4.6) ---------------------------------------------

// Refine repeatedly tries to collapse the chosen set into fewer patterns.
// pool is the full scored candidate pool (already sorted by score, as
// produced by pkg/forge/candidate), searched first for a ready-made
// replacement before any pattern is synthesized (the recorded decision
// for the "where do replacement patterns come from" open question).
func Refine(chosen []pattern.Pattern, pool []pattern.Pattern, include, exclude []coverage.Target) []pattern.Pattern {
	current := append([]pattern.Pattern(nil), chosen...)

	for {
		if len(current) < 2 {
			return current
		}

		if repl, ok := tryReplace(current, pool, include, exclude); ok {
			current = []pattern.Pattern{repl}
			continue
		}

		replaced := false
		for i := 0; i < len(current) && !replaced; i++ {
			for j := i + 1; j < len(current) && !replaced; j++ {
				group := []pattern.Pattern{current[i], current[j]}
				if repl, ok := tryReplace(group, pool, include, exclude); ok {
					next := make([]pattern.Pattern, 0, len(current)-1)
					next = append(next, repl)
					for k, p := range current {
						if k != i && k != j {
							next = append(next, p)
						}
					}
					current = next
					replaced = true
				}
			}
		}
		if !replaced {
			return current
		}
	}
}

// tryReplace looks for a single pattern that supercovers group's union of
// matched include rows without exceeding group's union of matched exclude
// rows. Pool candidates are tried first, in pool order (already
// deterministically sorted); failing that, three synthesis strategies are
// tried in the spec's stated order.
func tryReplace(group []pattern.Pattern, pool []pattern.Pattern, include, exclude []coverage.Target) (pattern.Pattern, bool) {
	groupInc, groupExc := groupSignature(group, include, exclude)
	if groupInc.PopCount() == 0 {
		return pattern.Pattern{}, false
	}
	fpBudget := groupExc.PopCount()

	groupTexts := make(map[string]bool, len(group))
	for _, p := range group {
		groupTexts[p.Text] = true
	}

	for _, cand := range pool {
		if groupTexts[cand.Text] {
			continue
		}
		inc, exc := matchSignature(cand.Text, include, exclude)
		if supercovers(inc, groupInc) && exc.PopCount() <= fpBudget {
			return cand, true
		}
	}

	covered := valuesAtBits(groupInc, include)

	if p, ok := synthesizePrefix(covered, include, exclude, fpBudget, groupInc); ok {
		return p, true
	}
	if p, ok := synthesizeCommonSubstring(covered, include, exclude, fpBudget, groupInc); ok {
		return p, true
	}
	if p, ok := synthesizeMultiSegment(covered, include, exclude, fpBudget, groupInc); ok {
		return p, true
	}

	return pattern.Pattern{}, false
}

func groupSignature(group []pattern.Pattern, include, exclude []coverage.Target) (*bitset.Set, *bitset.Set) {
	inc := bitset.New(len(include))
	exc := bitset.New(len(exclude))
	for _, p := range group {
		i, e := matchSignature(p.Text, include, exclude)
		inc.Or(i)
		exc.Or(e)
	}
	return inc, exc
}

// supercovers reports whether candidate's include mask is a superset of
// target (every row target covers, candidate also covers).
func supercovers(candidate, target *bitset.Set) bool {
	merged := candidate.Clone()
	merged.Or(target)
	return merged.Equal(candidate)
}

func valuesAtBits(bits *bitset.Set, include []coverage.Target) []string {
	var out []string
	for i, t := range include {
		if bits.Bit(i) {
			out = append(out, t.Value)
		}
	}
	return out
}

func synthesizePrefix(covered []string, include, exclude []coverage.Target, fpBudget int, groupInc *bitset.Set) (pattern.Pattern, bool) {
	prefix := longestCommonPrefix(covered)
	if prefix == "" {
		return pattern.Pattern{}, false
	}
	text := prefix + "*"
	return acceptIfSupercovers(text, pattern.KindPrefix, include, exclude, fpBudget, groupInc)
}

func synthesizeCommonSubstring(covered []string, include, exclude []coverage.Target, fpBudget int, groupInc *bitset.Set) (pattern.Pattern, bool) {
	common := commonTokenTexts(covered)
	if len(common) == 0 {
		return pattern.Pattern{}, false
	}
	longest := common[0]
	for _, c := range common[1:] {
		if len(c) > len(longest) || (len(c) == len(longest) && c < longest) {
			longest = c
		}
	}
	text := "*" + longest + "*"
	return acceptIfSupercovers(text, pattern.KindSubstring, include, exclude, fpBudget, groupInc)
}

func synthesizeMultiSegment(covered []string, include, exclude []coverage.Target, fpBudget int, groupInc *bitset.Set) (pattern.Pattern, bool) {
	common := commonTokenTexts(covered)
	if len(common) < 2 {
		return pattern.Pattern{}, false
	}
	ordered := orderByFirstAppearance(common, covered[0])
	text := "*" + strings.Join(ordered, "*") + "*"
	return acceptIfSupercovers(text, pattern.KindMulti, include, exclude, fpBudget, groupInc)
}

func acceptIfSupercovers(text string, kind pattern.Kind, include, exclude []coverage.Target, fpBudget int, groupInc *bitset.Set) (pattern.Pattern, bool) {
	if glob.IsBareWildcard(text) {
		return pattern.Pattern{}, false
	}
	inc, exc := matchSignature(text, include, exclude)
	if !supercovers(inc, groupInc) || exc.PopCount() > fpBudget {
		return pattern.Pattern{}, false
	}
	return pattern.Pattern{
		Text:      text,
		Kind:      kind,
		Wildcards: glob.Wildcards(text),
		Length:    glob.Length(text),
	}, true
}

// commonTokenTexts returns the token texts present in every covered
// value's default tokenization, sorted for determinism.
func commonTokenTexts(covered []string) []string {
	if len(covered) == 0 {
		return nil
	}
	cfg := token.DefaultConfig()
	counts := make(map[string]int)
	for _, v := range covered {
		seenInRow := make(map[string]bool)
		for _, tk := range token.Tokenize(v, cfg) {
			if !seenInRow[tk.Text] {
				seenInRow[tk.Text] = true
				counts[tk.Text]++
			}
		}
	}
	var common []string
	for text, n := range counts {
		if n == len(covered) {
			common = append(common, text)
		}
	}
	sort.Strings(common)
	return common
}

func orderByFirstAppearance(tokens []string, sample string) []string {
	cfg := token.DefaultConfig()
	order := make(map[string]int)
	for _, tk := range token.Tokenize(sample, cfg) {
		if _, ok := order[tk.Text]; !ok {
			order[tk.Text] = tk.OriginalIndex
		}
	}
	out := append([]string(nil), tokens...)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oki := order[out[i]]
		oj, okj := order[out[j]]
		if oki && okj {
			return oi < oj
		}
		if oki != okj {
			return oki
		}
		return out[i] < out[j]
	})
	return out
}
