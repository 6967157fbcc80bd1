package solve

import "github.com/patternforge/patternforge/pkg/hyperloglog"

// effortProfile scales candidate.Bounds and worker parallelism for one
// effort tier.
type effortProfile struct {
	maxCandidates    int
	maxMultiSegments int
	workers          int
}

var effortProfiles = map[Effort]effortProfile{
	EffortExhaustive: {maxCandidates: 20000, maxMultiSegments: 6, workers: 8},
	EffortHigh:       {maxCandidates: 8000, maxMultiSegments: 5, workers: 4},
	EffortMedium:     {maxCandidates: 4000, maxMultiSegments: 4, workers: 2},
	EffortLow:        {maxCandidates: 1000, maxMultiSegments: 2, workers: 1},
}

// resolveEffort fills in an unset (EffortAuto or "") Effort by estimating
// row cardinality with an HLL sketch instead of materializing and counting
// the full include/exclude sets, then scales Bounds/Workers to match —
// the one-pass sketch is what lets internal/receiver hand Solve a streamed
// batch without first buffering it to get a row count. Per spec's effort
// semantics, exhaustive is reserved for N<100 (single-field solving always
// has F=1<5, so that half of the "N<100, F<5" condition is automatic).
func resolveEffort(include, exclude []string, cfg Config) Config {
	if cfg.Effort != "" && cfg.Effort != EffortAuto {
		return cfg
	}

	hll := hyperloglog.New(14)
	for _, s := range include {
		hll.Add(s)
	}
	for _, s := range exclude {
		hll.Add(s)
	}
	n := hll.Count()

	var effort Effort
	switch {
	case n < 100:
		effort = EffortExhaustive
	case n < 1000:
		effort = EffortHigh
	case n < 10000:
		effort = EffortMedium
	default:
		effort = EffortLow
	}
	cfg.Effort = effort

	profile := effortProfiles[effort]
	cfg.Bounds.MaxCandidates = profile.maxCandidates
	cfg.Bounds.MaxMultiSegments = profile.maxMultiSegments
	if cfg.Workers == 0 {
		cfg.Workers = profile.workers
	}
	return cfg
}
