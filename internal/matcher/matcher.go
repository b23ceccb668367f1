// Package matcher selects the closest gallery face for a probe embedding.
// The distance metric is Euclidean over unit-normalized vectors; a probe
// matches when its closest entry is at or below the threshold. The Matcher
// interface isolates the scan so an approximate index can replace the exact
// one without touching callers.
package matcher

import (
	"math"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/index"
)

type Matcher interface {
	// Match finds the entry closest to probe in the snapshot. The result is
	// deterministic: equal minimum distances resolve to the entry with the
	// lexicographically smallest owner. An empty snapshot yields
	// matched=false with distance +Inf.
	Match(probe []float64, snap *index.Snapshot, threshold float64) domain.MatchResult
}

// Exact is the brute-force matcher: one pass over every entry, linear in
// gallery size.
type Exact struct{}

func NewExact() *Exact {
	return &Exact{}
}

func (m *Exact) Match(probe []float64, snap *index.Snapshot, threshold float64) domain.MatchResult {
	best := math.Inf(1)
	owner := ""

	// Entries are sorted by owner; strict less keeps the first (smallest)
	// owner on a distance tie.
	for _, e := range snap.Entries {
		if d := EuclideanDistance(probe, e.Vector); d < best {
			best = d
			owner = e.Owner
		}
	}

	result := domain.MatchResult{
		Distance:  best,
		Threshold: threshold,
	}
	if owner != "" && best <= threshold {
		result.Matched = true
		result.Owner = owner
	}
	return result
}

// EuclideanDistance computes the L2 distance between two vectors. Mismatched
// or empty vectors are maximally distant rather than an error: the index
// guarantees uniform dimensions, so this only guards stray callers.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

var _ Matcher = (*Exact)(nil)
