package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/embedder"
	"github.com/facecheck-dev/facecheck/internal/gallery"
	"github.com/facecheck-dev/facecheck/internal/index"
	"github.com/facecheck-dev/facecheck/internal/matcher"
	"github.com/facecheck-dev/facecheck/internal/registry"
)

// FaceService composes the gallery store, face index, matcher and embedder
// into the operations the HTTP boundary exposes.
type FaceService struct {
	store        *gallery.Store
	index        *index.Index
	matcher      matcher.Matcher
	embedder     embedder.Embedder
	registry     *registry.Registry
	logger       *slog.Logger
	threshold    float64
	embedTimeout time.Duration
}

func NewFaceService(
	store *gallery.Store,
	idx *index.Index,
	m matcher.Matcher,
	emb embedder.Embedder,
	reg *registry.Registry,
	logger *slog.Logger,
	threshold float64,
	embedTimeout time.Duration,
) *FaceService {
	return &FaceService{
		store:        store,
		index:        idx,
		matcher:      m,
		embedder:     emb,
		registry:     reg,
		logger:       logger,
		threshold:    threshold,
		embedTimeout: embedTimeout,
	}
}

// List returns metadata for every gallery image.
func (s *FaceService) List(ctx context.Context) ([]domain.ImageInfo, error) {
	return s.store.List()
}

// Image returns the raw bytes of a gallery image.
func (s *FaceService) Image(ctx context.Context, filename string) ([]byte, error) {
	return s.store.Get(filename)
}

// Recognize embeds the probe image and matches every detected face against
// the currently published index snapshot. The snapshot is read once, so a
// concurrent reload never mixes old and new gallery views inside one request.
func (s *FaceService) Recognize(ctx context.Context, image []byte, threshold *float64) (*domain.RecognizeResult, error) {
	thr, err := s.resolveThreshold(threshold)
	if err != nil {
		return nil, err
	}

	res, err := s.embed(ctx, image)
	if err != nil {
		return nil, err
	}

	snap := s.index.Current()
	out := &domain.RecognizeResult{
		FacesDetected: res.FacesDetected,
		Results:       make([]domain.MatchResult, 0, len(res.Embeddings)),
	}
	for _, probe := range res.Embeddings {
		out.Results = append(out.Results, s.matcher.Match(probe, snap, thr))
	}

	s.recordRecognition(out)

	return out, nil
}

// Upload stores a new gallery image. The embedding is computed first so an
// undecodable image never reaches storage; the durable write completes before
// the index add, so a crash in between is repaired by the next reload.
func (s *FaceService) Upload(ctx context.Context, filename string, image []byte, overwrite bool) (*domain.UploadResult, error) {
	if !gallery.ValidFilename(filename) {
		return nil, domain.ErrValidationFailed.WithMessage("filename must be a plain jpg, jpeg, png or webp name")
	}

	res, err := s.embed(ctx, image)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Put(filename, image, overwrite)
	if err != nil {
		return nil, err
	}

	s.store.SetEncoding(rec.ID, gallery.Encoding{
		Vectors:   res.Embeddings,
		Faces:     res.FacesDetected,
		CreatedAt: rec.CreatedAt,
	})

	if err := s.index.Add(rec.ID, res.Embeddings); err != nil {
		return nil, err
	}

	return &domain.UploadResult{
		Filename: rec.ID,
		Faces:    res.FacesDetected,
	}, nil
}

// Compare measures the distance between the first face of two stored images,
// bypassing the index entirely.
func (s *FaceService) Compare(ctx context.Context, a, b string, threshold *float64) (*domain.CompareResult, error) {
	thr, err := s.resolveThreshold(threshold)
	if err != nil {
		return nil, err
	}

	va, err := s.firstEmbedding(ctx, a)
	if err != nil {
		return nil, err
	}
	vb, err := s.firstEmbedding(ctx, b)
	if err != nil {
		return nil, err
	}

	if len(va) != len(vb) {
		return nil, domain.ErrConfig.WithError(
			fmt.Errorf("embeddings of %q and %q have different dimensions (%d vs %d)", a, b, len(va), len(vb)))
	}

	dist := matcher.EuclideanDistance(va, vb)
	return &domain.CompareResult{
		A:         a,
		B:         b,
		Matched:   dist <= thr,
		Distance:  dist,
		Threshold: thr,
	}, nil
}

// Reload rebuilds the face index from a full gallery scan. On failure the
// previous snapshot stays published and the service keeps serving it; the
// error is reported to the caller.
func (s *FaceService) Reload(ctx context.Context) (int, error) {
	loaded, err := s.index.Rebuild(ctx)
	if err != nil {
		s.logger.Warn("rebuild skipped, serving stale snapshot", slog.Any("error", err))
		return 0, err
	}
	return loaded, nil
}

// Delete removes an image from the gallery and drops its entries from the
// published snapshot.
func (s *FaceService) Delete(ctx context.Context, filename string) error {
	if err := s.store.Delete(filename); err != nil {
		return err
	}
	s.index.Remove(filename)
	return nil
}

// Registry returns the most recent recognition log entries.
func (s *FaceService) Registry(ctx context.Context, limit int) []registry.Entry {
	return s.registry.Recent(limit)
}

// firstEmbedding resolves the first face embedding of a stored image, using
// the cached encoding when present and re-embedding the stored bytes
// otherwise.
func (s *FaceService) firstEmbedding(ctx context.Context, id string) ([]float64, error) {
	if enc, ok := s.store.Encoding(id); ok {
		if len(enc.Vectors) == 0 {
			return nil, domain.ErrNoFaceDetected.WithMessage(fmt.Sprintf("no face detected in %q", id))
		}
		return enc.Vectors[0], nil
	}

	data, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	res, err := s.embed(ctx, data)
	if err != nil {
		return nil, err
	}

	s.store.SetEncoding(id, gallery.Encoding{
		Vectors:   res.Embeddings,
		Faces:     res.FacesDetected,
		CreatedAt: time.Now().UTC(),
	})

	if len(res.Embeddings) == 0 {
		return nil, domain.ErrNoFaceDetected.WithMessage(fmt.Sprintf("no face detected in %q", id))
	}
	return res.Embeddings[0], nil
}

// embed invokes the embedder under the configured timeout. Image decoding can
// be slow on malformed input, so the bound keeps worst-case request latency
// predictable.
func (s *FaceService) embed(ctx context.Context, image []byte) (*embedder.Result, error) {
	if s.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.embedTimeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, image)
}

func (s *FaceService) resolveThreshold(threshold *float64) (float64, error) {
	if threshold == nil {
		return s.threshold, nil
	}
	t := *threshold
	if t < 0 || math.IsNaN(t) {
		return 0, domain.ErrInvalidThreshold
	}
	return t, nil
}

// recordRecognition appends the first face's outcome to the registry,
// mirroring an attendance-style log.
func (s *FaceService) recordRecognition(res *domain.RecognizeResult) {
	if s.registry == nil || len(res.Results) == 0 {
		return
	}

	first := res.Results[0]
	entry := registry.Entry{
		TS:     time.Now().UTC(),
		Status: "fail",
	}
	if !math.IsInf(first.Distance, 1) {
		d := first.Distance
		entry.Distance = &d
	}
	if first.Matched {
		name := first.Owner
		entry.Name = &name
		entry.Status = "ok"
	}
	s.registry.Append(entry)
}
