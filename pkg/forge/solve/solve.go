// Package solve is the top-level PatternForge orchestrator: it wires the
// tokenizer, candidate generator, coverage engine, greedy selector,
// expansion and refinement passes into the single-field Solve entry
// point, walking the spec's linear state machine
// (Initialized → Tokenized → CandidatesScored → Selected → Expanded →
// Refined → Finalized) with inversion as the lone branch at Selected.
package solve

import (
	"fmt"
	"strings"

	"github.com/patternforge/patternforge/pkg/forge/bitset"
	"github.com/patternforge/patternforge/pkg/forge/candidate"
	"github.com/patternforge/patternforge/pkg/forge/coverage"
	"github.com/patternforge/patternforge/pkg/forge/glob"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/refine"
	"github.com/patternforge/patternforge/pkg/forge/selector"
	"github.com/patternforge/patternforge/pkg/forge/token"
)

// Mode forces or relaxes the zero-false-positive guarantee.
type Mode string

const (
	ModeExact  Mode = "exact"
	ModeApprox Mode = "approx"
)

// Effort scales how aggressively Solve searches the candidate space.
// EffortAuto (and the empty value, for callers that never set the field)
// defer the choice to resolveEffort, which sketches include/exclude
// cardinality with pkg/hyperloglog before picking one of the other four.
type Effort string

const (
	EffortAuto       Effort = "auto"
	EffortLow        Effort = "low"
	EffortMedium     Effort = "medium"
	EffortHigh       Effort = "high"
	EffortExhaustive Effort = "exhaustive"
)

// WitnessLimit bounds how many example strings are kept per witness
// category (SPEC_FULL.md §3's fixed sampling bound).
const WitnessLimit = 10

// Config bundles every tunable spec §6 exposes for single-field solving.
type Config struct {
	Mode        Mode
	Effort      Effort
	SplitMethod token.SplitMethod
	MinTokenLen int
	Weights     selector.Weights
	MaxPatterns selector.Budget
	MaxFP       selector.Budget
	MaxFN       selector.Budget
	Invert      selector.Invert
	Allowed     map[pattern.Kind]bool
	Bounds      candidate.Bounds
	Workers     int
}

// DefaultConfig returns spec §4.2/§4.3/§4.5's suggested defaults.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeApprox,
		Effort:      EffortAuto,
		SplitMethod: token.ClassChange,
		MinTokenLen: 2,
		Weights:     selector.DefaultWeights(),
		Invert:      selector.InvertAuto,
		Bounds:      candidate.DefaultBounds(),
	}
}

// ErrorKind classifies a fail-fast error per spec §7.
type ErrorKind string

const (
	ErrConfig ErrorKind = "config_error"
	ErrInput  ErrorKind = "input_error"
)

// Error is the stable, typed error spec §7 requires for configuration and
// input errors (no partial result is ever returned alongside one).
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

// Validate checks cfg against spec §7's configuration-error category,
// fast, before any tokenization or candidate work begins.
func Validate(cfg Config) error {
	if cfg.Mode != ModeExact && cfg.Mode != ModeApprox {
		return &Error{ErrConfig, fmt.Sprintf("invalid mode %q", cfg.Mode)}
	}
	switch cfg.Effort {
	case "", EffortAuto, EffortLow, EffortMedium, EffortHigh, EffortExhaustive:
	default:
		return &Error{ErrConfig, fmt.Sprintf("invalid effort %q", cfg.Effort)}
	}
	if cfg.MinTokenLen < 1 {
		return &Error{ErrConfig, "min_token_len must be >= 1"}
	}
	for k := range cfg.Allowed {
		if !pattern.ValidKinds[k] {
			return &Error{ErrConfig, fmt.Sprintf("unknown pattern kind %q in allowed_patterns", k)}
		}
	}
	if negativeWeight(cfg.Weights) {
		return &Error{ErrConfig, "weights must be non-negative"}
	}
	if cfg.Mode == ModeExact && cfg.MaxFP != nil && *cfg.MaxFP != 0 {
		return &Error{ErrConfig, "EXACT mode forces max_fp=0; an explicit non-zero max_fp is contradictory"}
	}
	return nil
}

func negativeWeight(w selector.Weights) bool {
	for _, wv := range []selector.WeightValue{w.FP, w.FN, w.Pattern, w.Op, w.Wildcard, w.Length} {
		if wv.Uniform < 0 {
			return true
		}
		for _, v := range wv.PerField {
			if v < 0 {
				return true
			}
		}
	}
	return false
}

// Metrics summarizes a Solution's coverage over the original include/
// exclude sets.
type Metrics struct {
	Covered       int `json:"covered"`
	TotalPositive int `json:"total_positive"`
	FP            int `json:"fp"`
	FN            int `json:"fn"`
	TotalNegative int `json:"total_negative"`
}

// Witnesses are bounded example strings supporting a Solution's metrics.
type Witnesses struct {
	TP []string `json:"tp_examples,omitempty"`
	FP []string `json:"fp_examples,omitempty"`
	FN []string `json:"fn_examples,omitempty"`
}

// Result is the spec §6 output object for single-field solving.
type Result struct {
	Expr           string           `json:"expr"`
	RawExpr        string           `json:"raw_expr"`
	Patterns       []pattern.Pattern `json:"patterns"`
	Metrics        Metrics          `json:"metrics"`
	Witnesses      Witnesses        `json:"witnesses"`
	GlobalInverted bool             `json:"global_inverted"`
	Truncated      bool             `json:"truncated,omitempty"`
}

// Solve runs the full single-field pipeline over include/exclude strings.
func Solve(include, exclude []string, cfg Config) (Result, error) {
	if err := Validate(cfg); err != nil {
		return Result{}, err
	}

	effectiveCfg := cfg
	if cfg.Mode == ModeExact {
		effectiveCfg.MaxFP = selector.Zero()
	}

	if len(include) == 0 {
		return Result{}, nil
	}

	effectiveCfg = resolveEffort(include, exclude, effectiveCfg)

	tokCfg := token.Config{SplitMethod: effectiveCfg.SplitMethod, MinTokenLen: effectiveCfg.MinTokenLen}

	rows := make([]candidate.Row, len(include))
	for i, s := range include {
		norm := strings.ToLower(s)
		rows[i] = candidate.Row{Original: norm, Tokens: token.Tokenize(s, tokCfg)}
	}

	includeTargets := make([]coverage.Target, len(include))
	for i, s := range include {
		includeTargets[i] = coverage.Target{Value: strings.ToLower(s)}
	}
	excludeTargets := make([]coverage.Target, len(exclude))
	for i, s := range exclude {
		excludeTargets[i] = coverage.Target{Value: strings.ToLower(s)}
	}

	genResult := candidate.Generate(rows, candidate.Options{
		AllowedKinds: effectiveCfg.Allowed,
		Weight:       1.0,
		Bounds:       effectiveCfg.Bounds,
	})
	pool := genResult.Candidates

	n, m := len(includeTargets), len(excludeTargets)
	masks := coverage.Compute(pool, includeTargets, excludeTargets, effectiveCfg.Workers)

	selCfg := selector.Config{
		Weights:     effectiveCfg.Weights,
		MaxPatterns: effectiveCfg.MaxPatterns,
		MaxFP:       effectiveCfg.MaxFP,
		MaxFN:       effectiveCfg.MaxFN,
	}
	fpBudget := selector.ResolveBudget(effectiveCfg.MaxFP, m)

	selRes := selector.RunWithInversion(pool, masks, n, m, selCfg, effectiveCfg.Invert, fpBudget)

	// Expansion/refinement must preserve each chosen pattern's hit mask in
	// whichever role-space the selector actually evaluated it under: when
	// inverted, patterns were chosen against swapped (exclude-as-include)
	// masks, so honing them must use the same swapped targets or it would
	// silently "preserve" a mask the pattern never had.
	genInclude, genExclude := includeTargets, excludeTargets
	if selRes.Inverted {
		genInclude, genExclude = excludeTargets, includeTargets
	}

	chosen := append([]pattern.Pattern(nil), selRes.Selection.Patterns...)
	chosen = refine.Expand(chosen, genInclude, genExclude)
	chosen = refine.Refine(chosen, pool, genInclude, genExclude)

	assignIDs(chosen)
	populateStats(chosen, genInclude, genExclude)

	incBits, excBits := bitset.New(n), bitset.New(m)
	for _, p := range chosen {
		i, e := matchSignature(p.Text, includeTargets, excludeTargets)
		incBits.Or(i)
		excBits.Or(e)
	}

	var tpBits, realExcBits *bitset.Set
	if selRes.Inverted {
		disjInc := incBits
		disjExc := excBits
		tpBits = bitset.AllOnes(n)
		tpBits.AndNot(disjInc)
		realExcBits = bitset.AllOnes(m)
		realExcBits.AndNot(disjExc)
	} else {
		tpBits = incBits
		realExcBits = excBits
	}

	metrics := Metrics{
		Covered:       tpBits.PopCount(),
		TotalPositive: n,
		FP:            realExcBits.PopCount(),
		FN:            n - tpBits.PopCount(),
		TotalNegative: m,
	}

	witnesses := buildWitnesses(includeTargets, excludeTargets, tpBits, realExcBits)

	rawExpr := renderExpr(chosen, selRes.Inverted, func(p pattern.Pattern) string { return p.Text })
	expr := renderExpr(chosen, selRes.Inverted, func(p pattern.Pattern) string { return p.ID })

	return Result{
		Expr:           expr,
		RawExpr:        rawExpr,
		Patterns:       chosen,
		Metrics:        metrics,
		Witnesses:      witnesses,
		GlobalInverted: selRes.Inverted,
		Truncated:      genResult.Truncated,
	}, nil
}

func assignIDs(chosen []pattern.Pattern) {
	for i := range chosen {
		chosen[i].ID = fmt.Sprintf("P%d", i+1)
	}
}

func populateStats(chosen []pattern.Pattern, include, exclude []coverage.Target) {
	for i := range chosen {
		inc, exc := matchSignature(chosen[i].Text, include, exclude)
		chosen[i].Matches = inc.PopCount()
		chosen[i].FP = exc.PopCount()
	}
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

func renderExpr(chosen []pattern.Pattern, inverted bool, label func(pattern.Pattern) string) string {
	if len(chosen) == 0 {
		return ""
	}
	parts := make([]string, len(chosen))
	for i, p := range chosen {
		parts[i] = label(p)
	}
	joined := strings.Join(parts, " | ")
	if !inverted {
		return joined
	}
	if len(chosen) == 1 {
		return "!" + joined
	}
	return "!(" + joined + ")"
}

func buildWitnesses(include, exclude []coverage.Target, tpBits, fpBits *bitset.Set) Witnesses {
	var w Witnesses
	for i, t := range include {
		if len(w.TP) >= WitnessLimit {
			break
		}
		if tpBits.Bit(i) {
			w.TP = append(w.TP, t.Value)
		}
	}
	for i, t := range exclude {
		if len(w.FP) >= WitnessLimit {
			break
		}
		if fpBits.Bit(i) {
			w.FP = append(w.FP, t.Value)
		}
	}
	for i, t := range include {
		if len(w.FN) >= WitnessLimit {
			break
		}
		if !tpBits.Bit(i) {
			w.FN = append(w.FN, t.Value)
		}
	}
	return w
}
