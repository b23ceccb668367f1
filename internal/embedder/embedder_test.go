package embedder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input []float64
		want  []float64
	}{
		{"already unit", []float64{1, 0, 0}, []float64{1, 0, 0}},
		{"scales down", []float64{3, 4}, []float64{0.6, 0.8}},
		{"scales up", []float64{0.3, 0.4}, []float64{0.6, 0.8}},
		{"zero vector unchanged", []float64{0, 0, 0}, []float64{0, 0, 0}},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestNormalize_UnitLength(t *testing.T) {
	got := Normalize([]float64{1.5, -2.25, 0.75, 10})

	var sum float64
	for _, v := range got {
		sum += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-12)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	input := []float64{3, 4}
	_ = Normalize(input)
	assert.Equal(t, []float64{3, 4}, input)
}
