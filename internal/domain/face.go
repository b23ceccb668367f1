package domain

import (
	"time"
)

// ImageRecord is a gallery entry: raw image bytes keyed by filename.
// Records are immutable once written; the Data slice must not be modified
// by callers.
type ImageRecord struct {
	ID        string    `json:"id"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageInfo is the listing view of a gallery entry. Faces is nil when the
// image has not been embedded yet (no cache entry on disk).
type ImageInfo struct {
	Filename string `json:"filename"`
	Faces    *int   `json:"faces"`
}

// FaceEmbedding is one detected face of a gallery image, as a unit-normalized
// vector. An image with several faces owns several embeddings.
type FaceEmbedding struct {
	Owner  string    `json:"owner"`
	Vector []float64 `json:"-"`
}

// MatchResult is the outcome of matching a single probe embedding against the
// published index snapshot. Distance is always the closest distance found,
// +Inf when the snapshot is empty. Owner is set only when Matched is true.
type MatchResult struct {
	Matched   bool    `json:"matched"`
	Owner     string  `json:"filename,omitempty"`
	Distance  float64 `json:"-"`
	Threshold float64 `json:"threshold"`
}

// RecognizeResult groups the per-face match results of one probe image.
type RecognizeResult struct {
	FacesDetected int           `json:"faces_detected"`
	Results       []MatchResult `json:"results"`
}

// CompareResult is the outcome of comparing two gallery images directly.
type CompareResult struct {
	A         string  `json:"a"`
	B         string  `json:"b"`
	Matched   bool    `json:"matched"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
}

// UploadResult reports the assigned filename and the number of faces found in
// a freshly stored image.
type UploadResult struct {
	Filename string `json:"filename"`
	Faces    int    `json:"faces"`
}
