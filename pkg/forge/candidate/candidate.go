// Package candidate enumerates and scores the bounded pool of wildcard
// patterns PatternForge considers during selection: exact, prefix,
// suffix, substring, and multi-segment patterns, gated so that every
// emitted candidate is guaranteed to match at least one include row at
// generation time.
package candidate

import (
	"sort"
	"strings"

	"github.com/patternforge/patternforge/pkg/forge/glob"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/token"
)

// Row is one include item: its normalized (lower-cased) original string
// and its tokens, in ascending original-index order.
type Row struct {
	Original string
	Tokens   []token.Token
}

// Bounds caps the size of the generated pool to keep later stages
// (coverage, selection) within the memory budget of spec §5.
type Bounds struct {
	// PerWordSubstrings caps how many substring/prefix/suffix candidates
	// may be generated from occurrences of the same token text; it
	// guards against pathological rows that repeat one token many times.
	PerWordSubstrings int
	// MaxMultiSegments is the largest contiguous token run considered
	// for a multi-segment candidate (2..MaxMultiSegments inclusive).
	MaxMultiSegments int
	// MaxCandidates is the size of the retained top-k pool.
	MaxCandidates int
}

// DefaultBounds returns the spec's suggested defaults.
func DefaultBounds() Bounds {
	return Bounds{
		PerWordSubstrings: 8,
		MaxMultiSegments:  4,
		MaxCandidates:     4000,
	}
}

// Options configures one generation pass. In single-field mode Field is
// empty and Weight is 1.0. In structured mode Field names the column and
// Weight is that field's w_field (0 suppresses the field entirely — the
// caller should skip generation rather than call with weight 0).
type Options struct {
	AllowedKinds map[pattern.Kind]bool // nil/empty means all kinds allowed
	Field        string
	Weight       float64
	Bounds       Bounds
}

// Result is the generated pool plus truncation diagnostics (spec §7:
// hitting MaxCandidates is expected truncation, not an error, but must be
// surfaced).
type Result struct {
	Candidates []pattern.Pattern
	Generated  int // count before truncation
	Truncated  bool
}

// Generate builds the scored candidate pool for rows under opts.
func Generate(rows []Row, opts Options) Result {
	bounds := opts.Bounds
	if bounds.MaxCandidates <= 0 {
		bounds.MaxCandidates = DefaultBounds().MaxCandidates
	}
	if bounds.MaxMultiSegments <= 0 {
		bounds.MaxMultiSegments = DefaultBounds().MaxMultiSegments
	}
	if bounds.PerWordSubstrings <= 0 {
		bounds.PerWordSubstrings = DefaultBounds().PerWordSubstrings
	}

	weight := opts.Weight
	if weight == 0 {
		weight = 1.0
	}

	seen := make(map[string]bool)
	perWord := make(map[string]int)
	var out []pattern.Pattern

	emit := func(text string, kind pattern.Kind) {
		if !kindAllowed(opts.AllowedKinds, kind) {
			return
		}
		if glob.IsBareWildcard(text) {
			return
		}
		if seen[text] {
			return
		}
		seen[text] = true
		out = append(out, build(text, kind, opts.Field, weight))
	}

	for _, row := range rows {
		if joined := joinTokens(row.Tokens); joined != "" && joined == row.Original {
			emit(joined, pattern.KindExact)
		}

		for _, tok := range row.Tokens {
			if perWord[tok.Text] >= bounds.PerWordSubstrings {
				continue
			}
			if strings.HasPrefix(row.Original, tok.Text) {
				emit(tok.Text+"*", pattern.KindPrefix)
			}
			if strings.HasSuffix(row.Original, tok.Text) {
				emit("*"+tok.Text, pattern.KindSuffix)
			}
			emit("*"+tok.Text+"*", pattern.KindSubstring)
			perWord[tok.Text]++
		}

		toks := row.Tokens
		for length := 2; length <= bounds.MaxMultiSegments && length <= len(toks); length++ {
			for start := 0; start+length <= len(toks); start++ {
				seg := toks[start : start+length]
				texts := make([]string, len(seg))
				for i, t := range seg {
					texts[i] = t.Text
				}
				emit("*"+strings.Join(texts, "*")+"*", pattern.KindMulti)
			}
		}
	}

	sortCandidates(out)

	generated := len(out)
	truncated := false
	if generated > bounds.MaxCandidates {
		out = out[:bounds.MaxCandidates]
		truncated = true
	}

	return Result{Candidates: out, Generated: generated, Truncated: truncated}
}

func kindAllowed(allowed map[pattern.Kind]bool, kind pattern.Kind) bool {
	if len(allowed) == 0 {
		return true
	}
	return allowed[kind]
}

func joinTokens(toks []token.Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func build(text string, kind pattern.Kind, field string, weight float64) pattern.Pattern {
	wc := glob.Wildcards(text)
	length := glob.Length(text)
	score := float64(length) * pattern.KindMultiplier[kind] * weight
	return pattern.Pattern{
		Text:      text,
		Kind:      kind,
		Wildcards: wc,
		Length:    length,
		Field:     field,
		Score:     score,
	}
}

// sortCandidates orders by descending score; ties break by ascending
// wildcard count, then descending length, then ascending lexicographic
// text, so retention is a stable, reproducible top-k (spec §4.3, §6).
func sortCandidates(cands []pattern.Pattern) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
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
