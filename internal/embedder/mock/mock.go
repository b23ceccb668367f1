package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"image"
	"math"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/embedder"
)

// minFaceSide is the minimum image side (in pixels) for the simulated
// detector to report a face. Smaller decodable images yield zero faces.
const minFaceSide = 48

// Embedder implements embedder.Embedder without a model: it validates that
// the input decodes as an image and derives a deterministic unit vector from
// the image bytes. Identical bytes always produce identical embeddings, which
// makes self-match distances exactly zero.
type Embedder struct{}

// New creates the deterministic local embedder.
func New() *Embedder {
	return &Embedder{}
}

func (e *Embedder) Embed(ctx context.Context, img []byte) (*embedder.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	if cfg.Width < minFaceSide || cfg.Height < minFaceSide {
		return &embedder.Result{FacesDetected: 0}, nil
	}

	return &embedder.Result{
		Embeddings:    [][]float64{generateEmbedding(img)},
		FacesDetected: 1,
	}, nil
}

func (e *Embedder) Dimension() int {
	return embedder.MockDimension
}

// generateEmbedding derives a unit vector from the sha256 hash of the image
// bytes.
func generateEmbedding(img []byte) []float64 {
	hash := sha256.Sum256(img)
	vector := make([]float64, embedder.MockDimension)
	hashLen := len(hash)

	for i := 0; i < embedder.MockDimension; i++ {
		idx := (i*31 + i/hashLen) % hashLen
		vector[i] = (float64(hash[idx])/255.0)*2 - 1
		if i%2 == 1 {
			vector[i] = math.Sin(vector[i] * float64(i))
		}
	}

	return embedder.Normalize(vector)
}

var _ embedder.Embedder = (*Embedder)(nil)
