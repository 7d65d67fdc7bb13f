package images

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"github.com/Tutortoise/inference-benchmark/models"
)

const PreviewQuality = 85

// RenderPreview scales img to size and writes it as JPEG.
func RenderPreview(w io.Writer, img image.Image, size models.DisplayDimensions) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("invalid preview size %dx%d", size.Width, size.Height)
	}

	scaled := resize.Resize(uint(size.Width), uint(size.Height), img, resize.Lanczos3)
	if err := imaging.Encode(w, scaled, imaging.JPEG, imaging.JPEGQuality(PreviewQuality)); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}
