package benchmark_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tutortoise/inference-benchmark/benchmark"
)

func TestComputeDisplaySize(t *testing.T) {
	tests := []struct {
		name                       string
		naturalWidth, naturalHeight int
		maxWidth, maxHeight        int
		wantWidth, wantHeight      int
	}{
		{"landscape 16:9", 1920, 1080, 600, 600, 600, 338},
		{"portrait 9:16", 1080, 1920, 600, 600, 338, 600},
		{"square", 500, 500, 600, 600, 600, 600},
		{"smaller than box is scaled up", 300, 200, 600, 600, 600, 400},
		{"wide box", 1000, 1000, 800, 400, 400, 400},
		{"tall box", 1000, 1000, 400, 800, 400, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := benchmark.ComputeDisplaySize(tt.naturalWidth, tt.naturalHeight, tt.maxWidth, tt.maxHeight)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, got.Width)
			assert.Equal(t, tt.wantHeight, got.Height)
		})
	}
}

func TestComputeDisplaySize_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		args  [4]int
		field string
	}{
		{"zero natural width", [4]int{0, 100, 600, 600}, "natural width"},
		{"negative natural height", [4]int{100, -1, 600, 600}, "natural height"},
		{"zero max width", [4]int{100, 100, 0, 600}, "max width"},
		{"negative max height", [4]int{100, 100, 600, -600}, "max height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := benchmark.ComputeDisplaySize(tt.args[0], tt.args[1], tt.args[2], tt.args[3])
			var invalid *benchmark.InvalidInputError
			require.True(t, errors.As(err, &invalid), "expected InvalidInputError, got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestComputeDisplaySize_FitsBoxAndKeepsRatio(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 5000; i++ {
		nw, nh := 1+rng.IntN(4000), 1+rng.IntN(4000)
		mw, mh := 50+rng.IntN(1000), 50+rng.IntN(1000)

		got, err := benchmark.ComputeDisplaySize(nw, nh, mw, mh)
		require.NoError(t, err)

		require.Positive(t, got.Width)
		require.Positive(t, got.Height)
		require.LessOrEqual(t, got.Width, mw, "natural %dx%d box %dx%d", nw, nh, mw, mh)
		require.LessOrEqual(t, got.Height, mh, "natural %dx%d box %dx%d", nw, nh, mw, mh)
		require.True(t, got.Width == mw || got.Height == mh, "box not filled: %+v in %dx%d", got, mw, mh)

		// each side is rounded up by less than one pixel
		ratio := float64(nw) / float64(nh)
		epsilon := math.Max(ratio, 1) / float64(got.Height)
		assert.InDelta(t, ratio, float64(got.Width)/float64(got.Height), epsilon,
			"natural %dx%d box %dx%d got %+v", nw, nh, mw, mh, got)
	}
}
