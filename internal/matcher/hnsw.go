package matcher

import (
	"math"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/index"
)

const (
	hnswMaxNeighbors = 16
	// hnswCandidates is how many approximate neighbors are pulled before the
	// exact re-rank that restores the deterministic tie-break.
	hnswCandidates = 10
)

// HNSW matches against an approximate nearest-neighbor graph built lazily per
// snapshot version. Candidates are re-ranked with the exact Euclidean
// distance, so reported distances are identical to the Exact matcher; only
// recall is approximate. Intended for galleries where the linear scan becomes
// the dominant cost.
type HNSW struct {
	mu      sync.Mutex
	version uuid.UUID
	graph   *hnsw.Graph[int]
}

func NewHNSW() *HNSW {
	return &HNSW{}
}

func (m *HNSW) Match(probe []float64, snap *index.Snapshot, threshold float64) domain.MatchResult {
	if snap.Len() == 0 {
		return domain.MatchResult{
			Distance:  math.Inf(1),
			Threshold: threshold,
		}
	}

	query := toFloat32(probe)

	m.mu.Lock()
	if m.graph == nil || m.version != snap.Version {
		m.graph = buildGraph(snap)
		m.version = snap.Version
	}
	k := hnswCandidates
	if k > snap.Len() {
		k = snap.Len()
	}
	neighbors := m.graph.Search(query, k)
	m.mu.Unlock()

	best := math.Inf(1)
	owner := ""
	for _, n := range neighbors {
		e := snap.Entries[n.Key]
		d := EuclideanDistance(probe, e.Vector)
		if d < best || (d == best && e.Owner < owner) {
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

// buildGraph indexes snapshot entries by position, so search results map
// straight back to snap.Entries.
func buildGraph(snap *index.Snapshot) *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for i, e := range snap.Entries {
		g.Add(hnsw.MakeNode(i, toFloat32(e.Vector)))
	}
	return g
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

var _ Matcher = (*HNSW)(nil)
