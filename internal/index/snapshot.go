package index

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/facecheck-dev/facecheck/internal/domain"
)

// Entry is one indexed face embedding. Owner is the gallery filename; images
// with several faces contribute several entries under the same owner.
type Entry struct {
	Owner  string
	Vector []float64
}

// Snapshot is an immutable, versioned view of the face index. Entries are
// sorted by owner so that matchers scanning in order resolve equal-distance
// ties to the lexicographically smallest owner. A snapshot is never mutated
// after it is published.
type Snapshot struct {
	Version uuid.UUID
	Dim     int
	Entries []Entry
	BuiltAt time.Time
}

// Len returns the number of indexed embeddings.
func (s *Snapshot) Len() int {
	return len(s.Entries)
}

// Owners returns the number of distinct gallery images in the snapshot.
func (s *Snapshot) Owners() int {
	n := 0
	prev := ""
	for i, e := range s.Entries {
		if i == 0 || e.Owner != prev {
			n++
			prev = e.Owner
		}
	}
	return n
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Version: uuid.New(),
		BuiltAt: time.Now().UTC(),
	}
}

// newSnapshot validates entry dimensions and returns a published-ready
// snapshot with entries sorted by owner. All vectors must share one width;
// a mix is a configuration error, never published.
func newSnapshot(entries []Entry) (*Snapshot, error) {
	dim := 0
	for _, e := range entries {
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != dim {
			return nil, domain.ErrConfig.WithError(
				fmt.Errorf("embedding for %q has dimension %d, want %d", e.Owner, len(e.Vector), dim))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Owner < entries[j].Owner
	})

	return &Snapshot{
		Version: uuid.New(),
		Dim:     dim,
		Entries: entries,
		BuiltAt: time.Now().UTC(),
	}, nil
}
