// Package coverage computes, for each candidate pattern, which include and
// exclude rows it matches. Candidates are independent, so the work is
// sharded across data-parallel workers over disjoint candidate ranges;
// each worker owns a private output region, so no locking is required and
// the merge is simply "results already live at the right index" — the
// same shard-and-own-your-slice shape as pkg/forge's teacher miner, minus
// the routing hash since ranges here are contiguous, not hashed.
package coverage

import (
	"runtime"
	"sync"

	"github.com/patternforge/patternforge/pkg/forge/bitset"
	"github.com/patternforge/patternforge/pkg/forge/glob"
	"github.com/patternforge/patternforge/pkg/forge/pattern"
)

// Target is one row's value for the field a candidate is matched against.
// DontCare marks a structured exclude row whose field was null/NaN: such
// rows are always considered matched (spec §4.4), regardless of the
// pattern text.
type Target struct {
	Value    string
	DontCare bool
}

// Masks holds the two bit vectors computed for a single candidate.
type Masks struct {
	Include *bitset.Set
	Exclude *bitset.Set
}

// Compute returns one Masks per candidate, same order as candidates.
// workers <= 0 selects GOMAXPROCS workers; workers is clamped to
// len(candidates) so no goroutine is started with empty work.
func Compute(candidates []pattern.Pattern, include, exclude []Target, workers int) []Masks {
	n := len(candidates)
	out := make([]Masks, n)
	if n == 0 {
		return out
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = computeOne(candidates[i], include, exclude)
			}
		}(start, end)
	}
	wg.Wait()

	return out
}

func computeOne(p pattern.Pattern, include, exclude []Target) Masks {
	inc := bitset.New(len(include))
	for i, t := range include {
		if glob.Match(p.Text, t.Value) {
			inc.SetBit(i)
		}
	}

	exc := bitset.New(len(exclude))
	for i, t := range exclude {
		if t.DontCare || glob.Match(p.Text, t.Value) {
			exc.SetBit(i)
		}
	}

	return Masks{Include: inc, Exclude: exc}
}
