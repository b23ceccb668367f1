// Package index holds the in-memory face index. Readers always observe a
// fully-built immutable snapshot through an atomic pointer; writers (add,
// rebuild) are serialized behind a single mutex and publish by swapping the
// pointer, so lookups never wait on a rebuild in progress.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/embedder"
	"github.com/facecheck-dev/facecheck/internal/gallery"
)

// rebuildParallelism bounds concurrent embedder calls during a rebuild.
const rebuildParallelism = 4

type Index struct {
	store    *gallery.Store
	embedder embedder.Embedder
	logger   *slog.Logger

	writeMu sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New creates an index serving an empty snapshot until the first rebuild.
func New(store *gallery.Store, emb embedder.Embedder, logger *slog.Logger) *Index {
	idx := &Index{
		store:    store,
		embedder: emb,
		logger:   logger,
	}
	idx.current.Store(emptySnapshot())
	return idx
}

// Current returns the latest published snapshot. Never nil, never blocks.
func (i *Index) Current() *Snapshot {
	return i.current.Load()
}

// Rebuild scans the whole gallery and atomically replaces the published
// snapshot. Cached encodings are reused; images without one are re-embedded
// (bounded parallelism). Rebuild is all-or-nothing: any scan or embed failure
// keeps the previous snapshot published and returns the error.
func (i *Index) Rebuild(ctx context.Context) (int, error) {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	type pending struct {
		id   string
		data []byte
	}

	encodings := make(map[string]gallery.Encoding)
	var missing []pending

	err := i.store.ScanAll(func(rec *domain.ImageRecord) error {
		if enc, ok := i.store.Encoding(rec.ID); ok {
			encodings[rec.ID] = enc
			return nil
		}
		missing = append(missing, pending{id: rec.ID, data: rec.Data})
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(missing) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(rebuildParallelism)

		for _, p := range missing {
			p := p
			g.Go(func() error {
				res, err := i.embedder.Embed(gctx, p.data)
				if err != nil {
					return fmt.Errorf("embed %s: %w", p.id, err)
				}
				mu.Lock()
				encodings[p.id] = gallery.Encoding{
					Vectors: res.Embeddings,
					Faces:   res.FacesDetected,
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	var entries []Entry
	for id, enc := range encodings {
		for _, v := range enc.Vectors {
			entries = append(entries, Entry{Owner: id, Vector: v})
		}
	}

	snap, err := newSnapshot(entries)
	if err != nil {
		return 0, err
	}
	if snap.Dim != 0 && snap.Dim != i.embedder.Dimension() {
		return 0, domain.ErrConfig.WithError(
			fmt.Errorf("gallery embeddings are %d-dimensional, embedder produces %d", snap.Dim, i.embedder.Dimension()))
	}

	i.current.Store(snap)
	i.store.ReplaceEncodings(encodings)

	i.logger.Info("face index rebuilt",
		slog.String("version", snap.Version.String()),
		slog.Int("images", snap.Owners()),
		slog.Int("embeddings", snap.Len()),
	)

	return snap.Len(), nil
}

// Add extends the published snapshot with the embeddings of one freshly
// stored image, without a full rebuild. The record must already be durable in
// the gallery; a rebuild started later will pick it up from its own scan.
// Zero vectors (image with no face) publishes nothing and is not an error.
func (i *Index) Add(id string, vectors [][]float64) error {
	if len(vectors) == 0 {
		return nil
	}

	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	cur := i.current.Load()

	entries := make([]Entry, 0, len(cur.Entries)+len(vectors))
	for _, e := range cur.Entries {
		if e.Owner != id {
			entries = append(entries, e)
		}
	}
	for _, v := range vectors {
		if len(v) != i.embedder.Dimension() {
			return domain.ErrConfig.WithError(
				fmt.Errorf("embedding for %q has dimension %d, embedder produces %d", id, len(v), i.embedder.Dimension()))
		}
		entries = append(entries, Entry{Owner: id, Vector: v})
	}

	snap, err := newSnapshot(entries)
	if err != nil {
		return err
	}

	i.current.Store(snap)
	return nil
}

// Remove publishes a snapshot without any entries of the given owner, used
// after an image is deleted from the gallery.
func (i *Index) Remove(id string) {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	cur := i.current.Load()
	entries := make([]Entry, 0, len(cur.Entries))
	for _, e := range cur.Entries {
		if e.Owner != id {
			entries = append(entries, e)
		}
	}
	if len(entries) == len(cur.Entries) {
		return
	}

	// Entries were already validated and sorted in the source snapshot.
	snap, err := newSnapshot(entries)
	if err != nil {
		return
	}
	i.current.Store(snap)
}
