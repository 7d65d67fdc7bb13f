package benchmark

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a new image is requested while a load or
	// classification is still in flight.
	ErrBusy = errors.New("a benchmark cycle is already in progress")

	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = errors.New("model has already been requested for this session")

	// ErrEmptyCatalog is returned when a controller is built without locators.
	ErrEmptyCatalog = errors.New("image catalog is empty")

	// ErrClosed is returned once the controller has released its model.
	ErrClosed = errors.New("session is closed")
)

// InvalidInputError reports a malformed argument, such as a non-positive
// image dimension.
type InvalidInputError struct {
	Field string
	Value float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// ModelLoadError wraps a failure reported by the model provider.
type ModelLoadError struct {
	Model string
	Cause error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Model, e.Cause)
}

func (e *ModelLoadError) Unwrap() error { return e.Cause }

// ImageLoadError wraps a failure reported by the image loader.
type ImageLoadError struct {
	Locator string
	Cause   error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %q: %v", e.Locator, e.Cause)
}

func (e *ImageLoadError) Unwrap() error { return e.Cause }

// ClassificationError wraps a failure reported by Model.Classify.
type ClassificationError struct {
	Locator string
	Cause   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %q: %v", e.Locator, e.Cause)
}

func (e *ClassificationError) Unwrap() error { return e.Cause }
