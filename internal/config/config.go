// Package config loads a PatternForge run configuration from YAML,
// merging a file on disk onto a hardcoded, always-valid default rather
// than requiring every field to be present.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/patternforge/patternforge/internal/receiver"
	"github.com/patternforge/patternforge/pkg/forge/candidate"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
	"github.com/patternforge/patternforge/pkg/forge/selector"
	"github.com/patternforge/patternforge/pkg/forge/solve"
	"github.com/patternforge/patternforge/pkg/forge/structured"
	"github.com/patternforge/patternforge/pkg/forge/token"
)

// weightsYAML mirrors selector.Weights with plain scalars; the per-field
// WeightValue.PerField override is a structured-mode-only knob and is
// exposed neither through the run-config file nor through the API request
// body (internal/api takes weights from the run config).
type weightsYAML struct {
	FP       *float64 `yaml:"fp"`
	FN       *float64 `yaml:"fn"`
	Pattern  *float64 `yaml:"pattern"`
	Op       *float64 `yaml:"op"`
	Wildcard *float64 `yaml:"wildcard"`
	Length   *float64 `yaml:"length"`
}

func (w weightsYAML) resolve(def selector.Weights) selector.Weights {
	pick := func(v *float64, d selector.WeightValue) selector.WeightValue {
		if v == nil {
			return d
		}
		return selector.Scalar(*v)
	}
	return selector.Weights{
		FP:       pick(w.FP, def.FP),
		FN:       pick(w.FN, def.FN),
		Pattern:  pick(w.Pattern, def.Pattern),
		Op:       pick(w.Op, def.Op),
		Wildcard: pick(w.Wildcard, def.Wildcard),
		Length:   pick(w.Length, def.Length),
	}
}

type boundsYAML struct {
	PerWordSubstrings int `yaml:"per_word_substrings"`
	MaxMultiSegments  int `yaml:"max_multi_segments"`
	MaxCandidates     int `yaml:"max_candidates"`
}

func (b boundsYAML) resolve(def candidate.Bounds) candidate.Bounds {
	out := def
	if b.PerWordSubstrings != 0 {
		out.PerWordSubstrings = b.PerWordSubstrings
	}
	if b.MaxMultiSegments != 0 {
		out.MaxMultiSegments = b.MaxMultiSegments
	}
	if b.MaxCandidates != 0 {
		out.MaxCandidates = b.MaxCandidates
	}
	return out
}

// runYAML is the on-disk document shape. Solve applies to single-
// field solving (internal/api's /v1/solve with a bare string list);
// Structured applies when a request carries field-keyed rows.
type runYAML struct {
	Solve struct {
		Mode            string      `yaml:"mode"`
		Effort          string      `yaml:"effort"`
		SplitMethod     string      `yaml:"split_method"`
		MinTokenLen     int         `yaml:"min_token_len"`
		Weights         weightsYAML `yaml:"weights"`
		MaxPatterns     *float64    `yaml:"max_patterns"`
		MaxFP           *float64    `yaml:"max_fp"`
		MaxFN           *float64    `yaml:"max_fn"`
		Invert          string      `yaml:"invert"`
		AllowedPatterns []string    `yaml:"allowed_patterns"`
		Bounds          boundsYAML  `yaml:"bounds"`
		Workers         int         `yaml:"workers"`
	} `yaml:"solve"`
	Structured struct {
		Weights     map[string]float64 `yaml:"weights"`
		SplitMethod string             `yaml:"split_method"`
		MinTokenLen int                `yaml:"min_token_len"`
		MaxTerms    int                `yaml:"max_terms"`
		Bounds      boundsYAML         `yaml:"bounds"`
		Workers     int                `yaml:"workers"`
	} `yaml:"structured"`
	Receiver struct {
		AttributeKey     string   `yaml:"attribute_key"`
		StatusAttribute  string   `yaml:"status_attribute"`
		BadValues        []string `yaml:"bad_values"`
		BufferSize       int      `yaml:"buffer_size"`
		FlushIntervalSec int      `yaml:"flush_interval_sec"`
	} `yaml:"receiver"`
}

// RunConfig bundles both solve entry points' configuration plus the OTLP
// receiver's attribute-mining configuration, loaded together so a single
// file governs the whole server.
type RunConfig struct {
	Solve      solve.Config
	Structured structured.Config
	Receiver   receiver.Config
}

// DefaultConfig returns solve.DefaultConfig/structured.DefaultConfig/
// receiver.DefaultConfig verbatim, the baseline Load merges a file onto.
func DefaultConfig() RunConfig {
	return RunConfig{
		Solve:      solve.DefaultConfig(),
		Structured: structured.DefaultConfig(),
		Receiver:   receiver.DefaultConfig(),
	}
}

// Load reads a YAML run configuration from path, falling back to
// DefaultConfig for any field the document leaves unset, and validates
// the merged result per spec §7's configuration-error category before
// returning it — a bad config fails here, never mid-solve.
func Load(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	var doc runYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RunConfig{}, fmt.Errorf("parsing config YAML: %w", err)
	}

	cfg := DefaultConfig()

	if m := doc.Solve.Mode; m != "" {
		cfg.Solve.Mode = solve.Mode(m)
	}
	if e := doc.Solve.Effort; e != "" {
		cfg.Solve.Effort = solve.Effort(e)
	}
	if s := doc.Solve.SplitMethod; s != "" {
		sm, err := parseSplitMethod(s)
		if err != nil {
			return RunConfig{}, err
		}
		cfg.Solve.SplitMethod = sm
	}
	if doc.Solve.MinTokenLen != 0 {
		cfg.Solve.MinTokenLen = doc.Solve.MinTokenLen
	}
	cfg.Solve.Weights = doc.Solve.Weights.resolve(cfg.Solve.Weights)
	cfg.Solve.MaxPatterns = doc.Solve.MaxPatterns
	cfg.Solve.MaxFP = doc.Solve.MaxFP
	cfg.Solve.MaxFN = doc.Solve.MaxFN
	if iv := doc.Solve.Invert; iv != "" {
		inv, err := parseInvert(iv)
		if err != nil {
			return RunConfig{}, err
		}
		cfg.Solve.Invert = inv
	}
	if len(doc.Solve.AllowedPatterns) > 0 {
		allowed, err := parseKinds(doc.Solve.AllowedPatterns)
		if err != nil {
			return RunConfig{}, err
		}
		cfg.Solve.Allowed = allowed
	}
	cfg.Solve.Bounds = doc.Solve.Bounds.resolve(cfg.Solve.Bounds)
	if doc.Solve.Workers != 0 {
		cfg.Solve.Workers = doc.Solve.Workers
	}

	if len(doc.Structured.Weights) > 0 {
		cfg.Structured.Weights = structured.FieldWeights(doc.Structured.Weights)
	}
	if s := doc.Structured.SplitMethod; s != "" {
		sm, err := parseSplitMethod(s)
		if err != nil {
			return RunConfig{}, err
		}
		cfg.Structured.SplitMethod = sm
	}
	if doc.Structured.MinTokenLen != 0 {
		cfg.Structured.MinTokenLen = doc.Structured.MinTokenLen
	}
	if doc.Structured.MaxTerms != 0 {
		cfg.Structured.MaxTerms = doc.Structured.MaxTerms
	}
	cfg.Structured.Bounds = doc.Structured.Bounds.resolve(cfg.Structured.Bounds)
	if doc.Structured.Workers != 0 {
		cfg.Structured.Workers = doc.Structured.Workers
	}

	if a := doc.Receiver.AttributeKey; a != "" {
		cfg.Receiver.AttributeKey = a
	}
	if s := doc.Receiver.StatusAttribute; s != "" {
		cfg.Receiver.StatusAttribute = s
	}
	if len(doc.Receiver.BadValues) > 0 {
		cfg.Receiver.BadValues = doc.Receiver.BadValues
	}
	if doc.Receiver.BufferSize != 0 {
		cfg.Receiver.BufferSize = doc.Receiver.BufferSize
	}
	if doc.Receiver.FlushIntervalSec != 0 {
		cfg.Receiver.FlushIntervalSec = doc.Receiver.FlushIntervalSec
	}

	if err := solve.Validate(cfg.Solve); err != nil {
		return RunConfig{}, err
	}
	if err := structured.Validate(cfg.Structured); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

func parseSplitMethod(s string) (token.SplitMethod, error) {
	switch s {
	case "class_change":
		return token.ClassChange, nil
	case "char":
		return token.Char, nil
	default:
		return 0, &solve.Error{Kind: solve.ErrConfig, Msg: fmt.Sprintf("unknown split_method %q", s)}
	}
}

func parseInvert(s string) (selector.Invert, error) {
	switch s {
	case "auto":
		return selector.InvertAuto, nil
	case "always":
		return selector.InvertAlways, nil
	case "never":
		return selector.InvertNever, nil
	default:
		return 0, &solve.Error{Kind: solve.ErrConfig, Msg: fmt.Sprintf("unknown invert mode %q", s)}
	}
}

func parseKinds(names []string) (map[pattern.Kind]bool, error) {
	out := make(map[pattern.Kind]bool, len(names))
	for _, n := range names {
		k := pattern.Kind(n)
		if !pattern.ValidKinds[k] {
			return nil, &solve.Error{Kind: solve.ErrConfig, Msg: fmt.Sprintf("unknown pattern kind %q in allowed_patterns", n)}
		}
		out[k] = true
	}
	return out, nil
}
