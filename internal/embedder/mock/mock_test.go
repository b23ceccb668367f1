package mock

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facecheck-dev/facecheck/internal/domain"
	"github.com/facecheck-dev/facecheck/internal/embedder"
)

// makePNG renders a solid-color square of the given side length.
func makePNG(t *testing.T, side int, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEmbedder_Embed(t *testing.T) {
	e := New()

	res, err := e.Embed(context.Background(), makePNG(t, 64, color.White))
	require.NoError(t, err)

	assert.Equal(t, 1, res.FacesDetected)
	require.Len(t, res.Embeddings, 1)
	assert.Len(t, res.Embeddings[0], embedder.MockDimension)
}

func TestEmbedder_Embed_InvalidBytes(t *testing.T) {
	e := New()

	_, err := e.Embed(context.Background(), []byte("definitely not an image"))

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domain.ErrInvalidImage.Code, appErr.Code)
}

func TestEmbedder_Embed_TinyImageHasNoFace(t *testing.T) {
	e := New()

	res, err := e.Embed(context.Background(), makePNG(t, 16, color.White))
	require.NoError(t, err)

	assert.Equal(t, 0, res.FacesDetected)
	assert.Empty(t, res.Embeddings)
}

func TestEmbedder_Embed_Deterministic(t *testing.T) {
	e := New()
	img := makePNG(t, 64, color.White)

	first, err := e.Embed(context.Background(), img)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := e.Embed(context.Background(), img)
		require.NoError(t, err)
		assert.Equal(t, first.Embeddings, again.Embeddings)
	}
}

func TestEmbedder_Embed_DistinctImagesDiffer(t *testing.T) {
	e := New()

	white, err := e.Embed(context.Background(), makePNG(t, 64, color.White))
	require.NoError(t, err)
	black, err := e.Embed(context.Background(), makePNG(t, 64, color.Black))
	require.NoError(t, err)

	assert.NotEqual(t, white.Embeddings[0], black.Embeddings[0])
}

func TestEmbedder_Embed_UnitNorm(t *testing.T) {
	e := New()

	res, err := e.Embed(context.Background(), makePNG(t, 64, color.White))
	require.NoError(t, err)

	var sum float64
	for _, v := range res.Embeddings[0] {
		sum += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-9)
}

func TestEmbedder_Embed_CancelledContext(t *testing.T) {
	e := New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, makePNG(t, 64, color.White))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedder_Dimension(t *testing.T) {
	assert.Equal(t, embedder.MockDimension, New().Dimension())
}
