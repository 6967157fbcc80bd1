// Package structured implements spec §4.8's multi-field solver: it wraps
// the single-field tokenizer/candidate/coverage pipeline once per field,
// then greedily assembles a disjunction of per-field conjunctions
// ("terms") instead of the single-field solver's flat disjunction of
// patterns. Each term starts from the single best field pattern and is
// lazily specialized with at most one additional pattern per other field,
// accepted only when it strictly lowers false positives without losing
// any true positive the term already has — the same
// solver-wraps-per-field-solver shape as
// internal/analyzer/autotemplate's ShardedMiner wraps one Drain tree per
// shard.
package structured

import (
	"fmt"
	"sort"
	"strings"

	"github.com/patternforge/patternforge/pkg/forge/bitset"
	"github.com/patternforge/patternforge/pkg/forge/candidate"
	"github.com/patternforge/patternforge/pkg/forge/coverage"
	"github.com/patternforge/patternforge/pkg/forge/glob"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/selector"
	"github.com/patternforge/patternforge/pkg/forge/token"
)

// Row is one structured record: field name to value. A nil value on an
// exclude row means "don't care" (every pattern on that field counts as
// matching that row, so the field never rules it out, spec §4.4); include
// rows must set every field.
type Row map[string]*string

// Str is a convenience constructor for a non-nil Row value.
func Str(s string) *string { return &s }

// FieldWeights is spec §4.8's w_field map: missing fields default to 1.0,
// 0 suppresses the field from candidate generation entirely.
type FieldWeights map[string]float64

func (w FieldWeights) get(field string) float64 {
	if w == nil {
		return 1.0
	}
	if v, ok := w[field]; ok {
		return v
	}
	return 1.0
}

// Config configures one structured solve.
type Config struct {
	// Fields fixes the field order; nil auto-detects from the first
	// include row's keys, sorted for determinism.
	Fields      []string
	Weights     FieldWeights
	SplitMethod token.SplitMethod
	MinTokenLen int
	// PerFieldMinTokenLen overrides MinTokenLen for specific fields.
	PerFieldMinTokenLen map[string]int
	Allowed             map[pattern.Kind]bool
	Bounds              candidate.Bounds
	SelectorWeights     selector.Weights
	// MaxTerms caps the number of disjuncts; 0 means unlimited.
	MaxTerms            int
	Workers             int
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{
		SplitMethod:     token.ClassChange,
		MinTokenLen:     2,
		SelectorWeights: selector.DefaultWeights(),
		Bounds:          candidate.DefaultBounds(),
	}
}

// ErrorKind classifies a fail-fast error per spec §7.
type ErrorKind string

const (
	ErrConfig ErrorKind = "config_error"
	ErrInput  ErrorKind = "input_error"
)

// Error is the stable, typed error for configuration and input problems.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

// Validate checks cfg against spec §7's configuration-error category,
// fast, before any tokenization or candidate work begins. Exported so
// callers (internal/config) can validate a loaded configuration before
// any row ever reaches Solve.
func Validate(cfg Config) error {
	return validate(cfg)
}

func validate(cfg Config) error {
	if cfg.MinTokenLen < 1 {
		return &Error{ErrConfig, "min_token_len must be >= 1"}
	}
	for f, v := range cfg.PerFieldMinTokenLen {
		if v < 1 {
			return &Error{ErrConfig, fmt.Sprintf("min_token_len for field %q must be >= 1", f)}
		}
	}
	for k := range cfg.Allowed {
		if !pattern.ValidKinds[k] {
			return &Error{ErrConfig, fmt.Sprintf("unknown pattern kind %q in allowed_patterns", k)}
		}
	}
	for f, w := range cfg.Weights {
		if w < 0 {
			return &Error{ErrConfig, fmt.Sprintf("field weight for %q must be >= 0", f)}
		}
	}
	if cfg.MaxTerms < 0 {
		return &Error{ErrConfig, "max_terms must be >= 0"}
	}
	return nil
}

func detectFields(r Row) []string {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func checkFieldSets(fields []string, include, exclude []Row) error {
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}
	check := func(r Row, kind string, idx int) error {
		if len(r) != len(want) {
			return &Error{ErrInput, fmt.Sprintf("%s row %d has %d fields, want %d", kind, idx, len(r), len(want))}
		}
		for f := range r {
			if !want[f] {
				return &Error{ErrInput, fmt.Sprintf("%s row %d has unexpected field %q", kind, idx, f)}
			}
		}
		return nil
	}
	for i, r := range include {
		if err := check(r, "include", i); err != nil {
			return err
		}
		for _, f := range fields {
			if r[f] == nil {
				return &Error{ErrInput, fmt.Sprintf("include row %d has a null value for field %q (only exclude rows may be don't-care)", i, f)}
			}
		}
	}
	for i, r := range exclude {
		if err := check(r, "exclude", i); err != nil {
			return err
		}
	}
	return nil
}

// Term is one conjunction of per-field patterns in the final disjunction.
type Term struct {
	Fields             map[string]pattern.Pattern `json:"fields"`
	Matches            int                        `json:"matches"`
	FP                 int                        `json:"fp"`
	FN                 int                        `json:"fn"`
	IncrementalMatches int                        `json:"incremental_matches"`
	IncrementalFP      int                        `json:"incremental_fp"`
	Length             int                        `json:"length"`
}

// Result is the spec §6 structured output (terms plus pooled metrics).
type Result struct {
	Terms         []Term `json:"terms"`
	Covered       int    `json:"covered"`
	TotalPositive int    `json:"total_positive"`
	FP            int    `json:"fp"`
	FN            int    `json:"fn"`
	TotalNegative int    `json:"total_negative"`
	Truncated     bool   `json:"truncated,omitempty"`
}

type fieldPool struct {
	candidates []pattern.Pattern
	masks      []coverage.Masks
}

// Solve runs the structured pipeline over include/exclude rows.
func Solve(include, exclude []Row, cfg Config) (Result, error) {
	if err := validate(cfg); err != nil {
		return Result{}, err
	}
	if len(include) == 0 {
		return Result{}, nil
	}

	fields := cfg.Fields
	if len(fields) == 0 {
		fields = detectFields(include[0])
	}
	if err := checkFieldSets(fields, include, exclude); err != nil {
		return Result{}, err
	}

	n, m := len(include), len(exclude)

	pools := make(map[string]fieldPool, len(fields))
	for _, f := range fields {
		w := cfg.Weights.get(f)
		if w == 0 {
			continue
		}
		tokCfg := token.Config{SplitMethod: cfg.SplitMethod, MinTokenLen: cfg.MinTokenLen}
		if v, ok := cfg.PerFieldMinTokenLen[f]; ok {
			tokCfg.MinTokenLen = v
		}

		rows := make([]candidate.Row, n)
		incTargets := make([]coverage.Target, n)
		for i, r := range include {
			v := strings.ToLower(*r[f])
			rows[i] = candidate.Row{Original: v, Tokens: token.Tokenize(*r[f], tokCfg)}
			incTargets[i] = coverage.Target{Value: v}
		}
		excTargets := make([]coverage.Target, m)
		for i, r := range exclude {
			v := r[f]
			if v == nil {
				excTargets[i] = coverage.Target{DontCare: true}
				continue
			}
			excTargets[i] = coverage.Target{Value: strings.ToLower(*v)}
		}

		genRes := candidate.Generate(rows, candidate.Options{
			AllowedKinds: cfg.Allowed,
			Field:        f,
			Weight:       w,
			Bounds:       cfg.Bounds,
		})
		masks := coverage.Compute(genRes.Candidates, incTargets, excTargets, cfg.Workers)
		pools[f] = fieldPool{candidates: genRes.Candidates, masks: masks}
	}

	remaining := bitset.AllOnes(n)
	globalInc := bitset.New(n)
	globalExc := bitset.New(m)
	var terms []Term
	truncated := false

	for remaining.AnyBit() {
		if cfg.MaxTerms > 0 && len(terms) >= cfg.MaxTerms {
			truncated = true
			break
		}
		term, inc, exc, ok := buildTerm(fields, pools, remaining, n, cfg.SelectorWeights)
		if !ok || inc.PopCount() == 0 {
			break
		}
		newlyCovered := inc.Clone()
		newlyCovered.And(remaining)
		term.IncrementalMatches = newlyCovered.PopCount()

		alreadyExc := exc.Clone()
		alreadyExc.And(globalExc)
		term.IncrementalFP = exc.PopCount() - alreadyExc.PopCount()

		terms = append(terms, term)
		globalInc.Or(inc)
		globalExc.Or(exc)
		remaining.AndNot(inc)
	}

	metrics := Result{
		Terms:         terms,
		Covered:       globalInc.PopCount(),
		TotalPositive: n,
		FP:            globalExc.PopCount(),
		FN:            n - globalInc.PopCount(),
		TotalNegative: m,
		Truncated:     truncated,
	}
	return metrics, nil
}

// buildTerm seeds a new conjunction with the single best-scoring pattern
// (over any field, against the rows still in remaining), then greedily
// folds in at most one pattern per other field, accepting an addition
// only when it strictly reduces the term's false positives without
// reducing its true positives (spec §4.8 step 4, "lazy multi-field
// specialization").
func buildTerm(fields []string, pools map[string]fieldPool, remaining *bitset.Set, n int, w selector.Weights) (Term, *bitset.Set, *bitset.Set, bool) {
	seedField, seedIdx, ok := bestSeed(fields, pools, remaining, n, w)
	if !ok {
		return Term{}, nil, nil, false
	}

	term := Term{Fields: map[string]pattern.Pattern{seedField: pools[seedField].candidates[seedIdx]}}
	curInc := pools[seedField].masks[seedIdx].Include.Clone()
	curExc := pools[seedField].masks[seedIdx].Exclude.Clone()
	used := map[string]bool{seedField: true}

	for {
		bestField, bestIdx, bestInc, bestExc, found := bestSpecialization(fields, pools, used, curInc, curExc)
		if !found {
			break
		}
		term.Fields[bestField] = pools[bestField].candidates[bestIdx]
		curInc, curExc = bestInc, bestExc
		used[bestField] = true
		if curExc.PopCount() == 0 || len(used) == len(fields) {
			break
		}
	}

	term.Matches = curInc.PopCount()
	term.FP = curExc.PopCount()
	term.FN = n - term.Matches
	for _, p := range term.Fields {
		term.Length += p.Length
	}
	return term, curInc, curExc, true
}

// bestSeed picks the single field pattern with the lowest cost against
// the rows still in remaining, using the selector's cost shape restricted
// to a single pattern (pattern-count/op contributions fixed at one
// pattern, zero operators).
func bestSeed(fields []string, pools map[string]fieldPool, remaining *bitset.Set, n int, w selector.Weights) (string, int, bool) {
	type best struct {
		field      string
		idx        int
		cost       float64
		gain       int
		wildcards  int
		length     int
		text       string
		haveChoice bool
	}
	var b best

	for _, f := range fields {
		pool, ok := pools[f]
		if !ok {
			continue
		}
		for i, p := range pool.candidates {
			hit := pool.masks[i].Include.Clone()
			hit.And(remaining)
			gain := hit.PopCount()
			if gain == 0 {
				continue
			}
			fp := pool.masks[i].Exclude.PopCount()
			c := seedCost(w, fp, n-gain, p)
			if !b.haveChoice || betterSeed(c, gain, p, b.cost, b.gain, pattern.Pattern{Wildcards: b.wildcards, Length: b.length, Text: b.text}) {
				b = best{field: f, idx: i, cost: c, gain: gain, wildcards: p.Wildcards, length: p.Length, text: p.Text, haveChoice: true}
			}
		}
	}
	if !b.haveChoice {
		return "", 0, false
	}
	return b.field, b.idx, true
}

func seedCost(w selector.Weights, fp, fn int, p pattern.Pattern) float64 {
	fieldCounts := map[string]int{p.Field: 1}
	return w.FP.Resolve(fieldCounts, 1)*float64(fp) +
		w.FN.Resolve(fieldCounts, 1)*float64(fn) +
		w.Pattern.Resolve(fieldCounts, 1) +
		w.Wildcard.Resolve(fieldCounts, 1)*float64(p.Wildcards) +
		w.Length.Resolve(fieldCounts, 1)*float64(p.Length)
}

func betterSeed(costA float64, gainA int, a pattern.Pattern, costB float64, gainB int, b pattern.Pattern) bool {
	if costA != costB {
		return costA < costB
	}
	if gainA != gainB {
		return gainA > gainB
	}
	if a.Wildcards != b.Wildcards {
		return a.Wildcards < b.Wildcards
	}
	if a.Length != b.Length {
		return a.Length > b.Length
	}
	return a.Text < b.Text
}

// bestSpecialization finds, among fields not yet used in this term, the
// single candidate whose conjunction with (curInc, curExc) strictly
// reduces the false-positive count while leaving the true-positive count
// unchanged. Ties break by largest FP reduction, then fewest wildcards,
// then lexicographically.
func bestSpecialization(fields []string, pools map[string]fieldPool, used map[string]bool, curInc, curExc *bitset.Set) (string, int, *bitset.Set, *bitset.Set, bool) {
	type best struct {
		field     string
		idx       int
		inc, exc  *bitset.Set
		reduction int
		wildcards int
		text      string
		found     bool
	}
	var b best

	for _, f := range fields {
		if used[f] {
			continue
		}
		pool, ok := pools[f]
		if !ok {
			continue
		}
		for i, p := range pool.candidates {
			inc := curInc.Clone()
			inc.And(pool.masks[i].Include)
			if inc.PopCount() != curInc.PopCount() {
				continue // would drop a true positive
			}
			exc := curExc.Clone()
			exc.And(pool.masks[i].Exclude)
			reduction := curExc.PopCount() - exc.PopCount()
			if reduction <= 0 {
				continue
			}
			if !b.found || reduction > b.reduction ||
				(reduction == b.reduction && p.Wildcards < b.wildcards) ||
				(reduction == b.reduction && p.Wildcards == b.wildcards && p.Text < b.text) {
				b = best{field: f, idx: i, inc: inc, exc: exc, reduction: reduction, wildcards: p.Wildcards, text: p.Text, found: true}
			}
		}
	}
	if !b.found {
		return "", 0, nil, nil, false
	}
	return b.field, b.idx, b.inc, b.exc, true
}

// RawExpr renders the spec §4.8 raw form,
// "(f1: p1) & (f2: p2) | (f1: p3) & (f3: p4)", using each pattern's text.
func RawExpr(terms []Term) string {
	return render(terms, func(p pattern.Pattern) string { return p.Text })
}

// SymbolicExpr renders the same structure with each pattern replaced by
// its ID (assigned by AssignIDs).
func SymbolicExpr(terms []Term) string {
	return render(terms, func(p pattern.Pattern) string { return p.ID })
}

func render(terms []Term, label func(pattern.Pattern) string) string {
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		fields := make([]string, 0, len(t.Fields))
		for f := range t.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		clauses := make([]string, len(fields))
		for j, f := range fields {
			clauses[j] = fmt.Sprintf("(%s: %s)", f, label(t.Fields[f]))
		}
		parts[i] = strings.Join(clauses, " & ")
	}
	return strings.Join(parts, " | ")
}

// AssignIDs assigns sequential P1, P2, ... identifiers to every pattern
// across every term, field order sorted for determinism.
func AssignIDs(terms []Term) {
	n := 0
	for i := range terms {
		fields := make([]string, 0, len(terms[i].Fields))
		for f := range terms[i].Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			n++
			p := terms[i].Fields[f]
			p.ID = fmt.Sprintf("P%d", n)
			terms[i].Fields[f] = p
		}
	}
}

// MatchRow reports whether a row satisfies at least one term (the
// disjunction-of-conjunctions semantics of the structured result).
func MatchRow(terms []Term, row Row) bool {
	for _, t := range terms {
		if termMatches(t, row) {
			return true
		}
	}
	return false
}

func termMatches(t Term, row Row) bool {
	for f, p := range t.Fields {
		v := row[f]
		if v == nil {
			continue // don't-care
		}
		if !glob.Match(p.Text, strings.ToLower(*v)) {
			return false
		}
	}
	return true
}
