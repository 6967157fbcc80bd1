// Package pattern defines the Pattern (aka Atom) record shared by every
// stage of the PatternForge pipeline, from candidate generation through
// the final Solution.
package pattern

// Kind classifies how a pattern's text was derived from its source tokens.
type Kind string

const (
	KindExact     Kind = "exact"
	KindPrefix    Kind = "prefix"
	KindSuffix    Kind = "suffix"
	KindSubstring Kind = "substring"
	KindMulti     Kind = "multi"
)

// KindMultiplier is the scoring multiplier applied to a pattern's raw
// length, per kind (spec §4.3). Multi-segment patterns instead use the
// sum of their constituent token lengths as the base before this
// multiplier is applied at 1.0 (see candidate.build).
var KindMultiplier = map[Kind]float64{
	KindExact:     2.0,
	KindPrefix:    1.5,
	KindSuffix:    1.5,
	KindSubstring: 1.0,
	KindMulti:     1.0,
}

// ValidKinds is the full set of kinds the generator may emit, used to
// validate an allowed-kinds configuration.
var ValidKinds = map[Kind]bool{
	KindExact:     true,
	KindPrefix:    true,
	KindSuffix:    true,
	KindSubstring: true,
	KindMulti:     true,
}

// Pattern is an immutable glob-pattern record. Patterns generated by
// pkg/forge/candidate carry no ID or coverage statistics yet; both are
// filled in once a pattern is chosen by the selector.
type Pattern struct {
	ID        string  `json:"id,omitempty"`
	Text      string  `json:"text"`
	Kind      Kind    `json:"kind"`
	Wildcards int     `json:"wildcards"`
	Length    int     `json:"length"`
	Field     string  `json:"field,omitempty"`
	Score     float64 `json:"score"`

	// Coverage statistics, populated after selection.
	Matches int `json:"matches,omitempty"`
	FP      int `json:"fp,omitempty"`
}

// Clone returns a deep copy safe for a Solution to own independently of
// the candidate pool it was drawn from.
func (p Pattern) Clone() Pattern {
	return p
}
