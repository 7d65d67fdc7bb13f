package benchmark

import (
	"math"

	"github.com/Tutortoise/inference-benchmark/models"
)

// ComputeDisplaySize scales an image of the given natural size to fit inside
// maxWidth x maxHeight while keeping its aspect ratio. The box is filled on
// the constraining axis.
func ComputeDisplaySize(naturalWidth, naturalHeight, maxWidth, maxHeight int) (models.DisplayDimensions, error) {
	for _, arg := range []struct {
		name  string
		value int
	}{
		{"natural width", naturalWidth},
		{"natural height", naturalHeight},
		{"max width", maxWidth},
		{"max height", maxHeight},
	} {
		if arg.value <= 0 {
			return models.DisplayDimensions{}, &InvalidInputError{Field: arg.name, Value: float64(arg.value)}
		}
	}

	ratio := float64(naturalWidth) / float64(naturalHeight)

	width := maxWidth
	height := int(math.Ceil(float64(width) / ratio))
	if height > maxHeight {
		height = maxHeight
		width = int(math.Ceil(float64(height) * ratio))
		// ceil can only overshoot by float noise here
		if width > maxWidth {
			width = maxWidth
		}
	}

	return models.DisplayDimensions{Width: width, Height: height}, nil
}
