package embedder

import (
	"context"
	"math"
)

// Embedding scheme constants. All embedders return unit-normalized vectors;
// distances between them are Euclidean (see internal/matcher). Two unit
// vectors are considered the same face when their distance is at or below the
// configured threshold; 0.6 is the service default (FACE_MATCH_THRESHOLD).
const (
	// MockDimension is the vector width of the deterministic local embedder.
	MockDimension = 128
	// DeepFaceDimension is the vector width of the Facenet512 model served by
	// a DeepFace sidecar.
	DeepFaceDimension = 512
)

// Result carries every face found in one image. FacesDetected equal to zero
// with an empty Embeddings slice is a normal outcome for a decodable image,
// not an error; callers must treat it as "no face found".
type Result struct {
	Embeddings    [][]float64
	FacesDetected int
}

// Embedder converts raw image bytes into face embeddings. Implementations are
// pure (no shared state) and safe for concurrent use. Undecodable input fails
// with domain.ErrInvalidImage; the selection among multiple detected faces is
// the caller's policy, never the embedder's.
type Embedder interface {
	Embed(ctx context.Context, image []byte) (*Result, error)

	// Dimension reports the vector width of this embedder's scheme. Mixing
	// widths inside one index snapshot is a configuration error.
	Dimension() int
}

// Normalize scales a vector to unit length. Zero vectors are returned
// unchanged.
func Normalize(vector []float64) []float64 {
	if len(vector) == 0 {
		return vector
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}

	if norm == 0 {
		return vector
	}

	norm = math.Sqrt(norm)
	normalized := make([]float64, len(vector))
	for i, v := range vector {
		normalized[i] = v / norm
	}

	return normalized
}
