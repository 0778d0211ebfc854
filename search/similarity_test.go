package search

import (
	"errors"
	"math"
	"testing"

	"github.com/poiesic/athena/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, -1}, []float32{-1, 1}, -1},
		{"scaled", []float32{3, 4}, []float32{6, 8}, 1},
		{"diagonal", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
		{"zero query", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero record", []float32{1, 1}, []float32{0, 0}, 0},
		{"empty", []float32{}, []float32{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	_, err := CosineSimilarity(make([]float32, 1024), make([]float32, 3072))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrLengthMismatch))

	var mismatch *core.LengthMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1024, mismatch.Expected)
	assert.Equal(t, 3072, mismatch.Actual)
}
