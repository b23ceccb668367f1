package deepface

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/embedder"
)

// Embedder implements embedder.Embedder against a DeepFace sidecar using the
// Facenet512 model. One embedding is returned per face the detector finds;
// zero faces in a valid image is a normal result.
type Embedder struct {
	client *Client
}

// New creates a DeepFace-backed embedder.
func New(config Config) *Embedder {
	return &Embedder{
		client: NewClient(config),
	}
}

func (e *Embedder) Embed(ctx context.Context, image []byte) (*embedder.Result, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := e.client.Represent(ctx, imageBase64)
	if err != nil {
		// DeepFace rejects undecodable payloads with a 4xx.
		if isClientError(err) {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		return nil, fmt.Errorf("represent: %w", err)
	}

	result := &embedder.Result{
		Embeddings:    make([][]float64, 0, len(resp.Results)),
		FacesDetected: len(resp.Results),
	}
	for _, r := range resp.Results {
		if len(r.Embedding) != embedder.DeepFaceDimension {
			return nil, domain.ErrConfig.WithError(
				fmt.Errorf("deepface returned a %d-dimensional embedding, want %d", len(r.Embedding), embedder.DeepFaceDimension))
		}
		result.Embeddings = append(result.Embeddings, embedder.Normalize(r.Embedding))
	}

	return result, nil
}

func (e *Embedder) Dimension() int {
	return embedder.DeepFaceDimension
}

var _ embedder.Embedder = (*Embedder)(nil)
