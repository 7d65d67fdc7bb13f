package benchmark

import (
	"context"
	"image"

	"github.com/Tutortoise/inference-benchmark/models"
)

// ImageHandle is one loaded image. A new handle is created for every load;
// handles are never mutated after the loader returns them.
type ImageHandle struct {
	Locator string
	Width   int
	Height  int
	Image   image.Image
}

// Model classifies a loaded image. Implementations must be safe to call
// repeatedly with no mutation of shared state visible to callers.
type Model interface {
	Classify(ctx context.Context, img *ImageHandle) ([]models.Prediction, error)
}

// ModelProvider loads a model by name.
type ModelProvider interface {
	Load(ctx context.Context, name string) (Model, error)
}

// ImageLoader resolves a locator into a decoded image. Load blocks until
// the natural dimensions are known or the load fails.
type ImageLoader interface {
	Load(ctx context.Context, locator string) (*ImageHandle, error)
}
