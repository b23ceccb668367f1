package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/embedder"
	"github.com/facecheck-dev/facecheck/internal/gallery"
)

// stubEmbedder derives a 3-dimensional vector from the first image byte, and
// can be told to fail for specific inputs.
type stubEmbedder struct {
	mu     sync.Mutex
	failOn map[byte]error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, img []byte) (*embedder.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if len(img) == 0 {
		return nil, domain.ErrInvalidImage
	}
	if err, ok := s.failOn[img[0]]; ok {
		return nil, err
	}
	v := float64(img[0])
	return &embedder.Result{
		Embeddings:    [][]float64{{v, v + 1, v + 2}},
		FacesDetected: 1,
	}, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }

func (s *stubEmbedder) embedCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIndex(t *testing.T, emb embedder.Embedder) (*Index, *gallery.Store) {
	t.Helper()
	store, err := gallery.NewStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	return New(store, emb, testLogger()), store
}

func TestIndex_StartsEmpty(t *testing.T) {
	idx, _ := newTestIndex(t, &stubEmbedder{})

	snap := idx.Current()
	require.NotNil(t, snap)
	assert.Zero(t, snap.Len())
}

func TestIndex_Rebuild(t *testing.T) {
	emb := &stubEmbedder{}
	idx, store := newTestIndex(t, emb)

	for _, name := range []string{"alice.jpg", "bob.jpg", "carol.jpg"} {
		_, err := store.Put(name, []byte(name), false)
		require.NoError(t, err)
	}

	loaded, err := idx.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded)

	snap := idx.Current()
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, 3, snap.Owners())
	assert.Equal(t, 3, snap.Dim)

	// Entries come out sorted by owner.
	owners := make([]string, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		owners = append(owners, e.Owner)
	}
	assert.Equal(t, []string{"alice.jpg", "bob.jpg", "carol.jpg"}, owners)
}

func TestIndex_Rebuild_UsesCachedEncodings(t *testing.T) {
	emb := &stubEmbedder{}
	idx, store := newTestIndex(t, emb)

	_, err := store.Put("alice.jpg", []byte("alice"), false)
	require.NoError(t, err)
	store.SetEncoding("alice.jpg", gallery.Encoding{
		Vectors: [][]float64{{1, 2, 3}},
		Faces:   1,
	})

	loaded, err := idx.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Zero(t, emb.embedCalls(), "cached encodings must not be re-embedded")
}

func TestIndex_Rebuild_AllOrNothing(t *testing.T) {
	emb := &stubEmbedder{failOn: map[byte]error{'b': errors.New("embed blew up")}}
	idx, store := newTestIndex(t, emb)

	_, err := store.Put("alice.jpg", []byte("alice"), false)
	require.NoError(t, err)

	loaded, err := idx.Rebuild(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, loaded)
	before := idx.Current()

	// The next rebuild hits a failing image and must keep the old snapshot.
	_, err = store.Put("bob.jpg", []byte("bob"), false)
	require.NoError(t, err)

	_, err = idx.Rebuild(context.Background())
	require.Error(t, err)
	assert.Same(t, before, idx.Current(), "failed rebuild must not publish a snapshot")
}

func TestIndex_Rebuild_Idempotent(t *testing.T) {
	emb := &stubEmbedder{}
	idx, store := newTestIndex(t, emb)

	for _, name := range []string{"a.jpg", "b.jpg"} {
		_, err := store.Put(name, []byte(name), false)
		require.NoError(t, err)
	}

	_, err := idx.Rebuild(context.Background())
	require.NoError(t, err)
	first := idx.Current()

	_, err = idx.Rebuild(context.Background())
	require.NoError(t, err)
	second := idx.Current()

	assert.NotEqual(t, first.Version, second.Version)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, first.Dim, second.Dim)
}

func TestIndex_Add(t *testing.T) {
	emb := &stubEmbedder{}
	idx, _ := newTestIndex(t, emb)

	require.NoError(t, idx.Add("alice.jpg", [][]float64{{1, 2, 3}}))

	snap := idx.Current()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "alice.jpg", snap.Entries[0].Owner)
	assert.Equal(t, []float64{1, 2, 3}, snap.Entries[0].Vector)
}

func TestIndex_Add_ReplacesExistingOwner(t *testing.T) {
	emb := &stubEmbedder{}
	idx, _ := newTestIndex(t, emb)

	require.NoError(t, idx.Add("alice.jpg", [][]float64{{1, 1, 1}}))
	require.NoError(t, idx.Add("alice.jpg", [][]float64{{2, 2, 2}}))

	snap := idx.Current()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, []float64{2, 2, 2}, snap.Entries[0].Vector)
}

func TestIndex_Add_NoVectorsIsNoop(t *testing.T) {
	emb := &stubEmbedder{}
	idx, _ := newTestIndex(t, emb)

	before := idx.Current()
	require.NoError(t, idx.Add("faceless.jpg", nil))
	assert.Same(t, before, idx.Current())
}

func TestIndex_Add_DimensionMismatch(t *testing.T) {
	emb := &stubEmbedder{}
	idx, _ := newTestIndex(t, emb)

	err := idx.Add("alice.jpg", [][]float64{{1, 2}})

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.ErrConfig.Code, appErr.Code)
	assert.Zero(t, idx.Current().Len())
}

func TestIndex_Remove(t *testing.T) {
	emb := &stubEmbedder{}
	idx, _ := newTestIndex(t, emb)

	require.NoError(t, idx.Add("alice.jpg", [][]float64{{1, 2, 3}}))
	require.NoError(t, idx.Add("bob.jpg", [][]float64{{4, 5, 6}}))

	idx.Remove("alice.jpg")

	snap := idx.Current()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "bob.jpg", snap.Entries[0].Owner)

	// Removing an absent owner keeps the snapshot as-is.
	before := idx.Current()
	idx.Remove("nobody.jpg")
	assert.Same(t, before, idx.Current())
}

func TestIndex_ConcurrentAddDuringRebuild(t *testing.T) {
	emb := &stubEmbedder{}
	idx, store := newTestIndex(t, emb)

	_, err := store.Put("a.jpg", []byte("a"), false)
	require.NoError(t, err)
	_, err = store.Put("b.jpg", []byte("b"), false)
	require.NoError(t, err)

	// Add and Rebuild race; both records are durable, so whichever order the
	// writer lock serializes them in, no entry may be lost.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = idx.Rebuild(context.Background())
	}()
	go func() {
		defer wg.Done()
		_ = idx.Add("b.jpg", [][]float64{{98, 99, 100}})
	}()
	wg.Wait()

	// Rebuild holds the writer lock for its whole scan-and-publish, so either
	// serialization ends with both owners present.
	owners := map[string]bool{}
	for _, e := range idx.Current().Entries {
		owners[e.Owner] = true
	}
	assert.True(t, owners["a.jpg"])
	assert.True(t, owners["b.jpg"])
}

func TestIndex_ReadersNeverBlocked(t *testing.T) {
	emb := &stubEmbedder{}
	idx, store := newTestIndex(t, emb)

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		_, err := store.Put(name, []byte(name), false)
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_, _ = idx.Rebuild(context.Background())
		}
	}()

	// Concurrent readers always observe a complete snapshot.
	for i := 0; i < 200; i++ {
		snap := idx.Current()
		require.NotNil(t, snap)
		for _, e := range snap.Entries {
			assert.Len(t, e.Vector, snap.Dim)
		}
	}
	<-done
}
