package testutil

import (
	"context"
	"image"
	"sync"

	"github.com/Tutortoise/inference-benchmark/benchmark"
	"github.com/Tutortoise/inference-benchmark/models"
)

// MockModelProvider is a mock implementation of benchmark.ModelProvider for testing
type MockModelProvider struct {
	LoadFunc func(ctx context.Context, name string) (benchmark.Model, error)

	mu        sync.Mutex
	CallCount int
	LastName  string
}

func (m *MockModelProvider) Load(ctx context.Context, name string) (benchmark.Model, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastName = name
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, name)
	}
	// Default: a model that always answers with one label
	return &MockModel{}, nil
}

// Calls returns the number of Load calls so far.
func (m *MockModelProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockModel is a mock implementation of benchmark.Model for testing
type MockModel struct {
	ClassifyFunc func(ctx context.Context, img *benchmark.ImageHandle) ([]models.Prediction, error)

	mu          sync.Mutex
	CallCount   int
	LastLocator string
	CloseCount  int
}

func (m *MockModel) Classify(ctx context.Context, img *benchmark.ImageHandle) ([]models.Prediction, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastLocator = img.Locator
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, img)
	}
	return []models.Prediction{{Label: "tabby cat", Confidence: 0.9}}, nil
}

// Calls returns the number of Classify calls so far.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Close records that the model was released.
func (m *MockModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCount++
	return nil
}

// Closed reports whether Close has been called.
func (m *MockModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CloseCount > 0
}

// MockImageLoader is a mock implementation of benchmark.ImageLoader for testing
type MockImageLoader struct {
	LoadFunc func(ctx context.Context, locator string) (*benchmark.ImageHandle, error)

	// Width and Height are the natural size reported by the default loader.
	Width  int
	Height int

	mu        sync.Mutex
	CallCount int
	Locators  []string
}

func (m *MockImageLoader) Load(ctx context.Context, locator string) (*benchmark.ImageHandle, error) {
	m.mu.Lock()
	m.CallCount++
	m.Locators = append(m.Locators, locator)
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, locator)
	}
	return NewImageHandle(locator, m.Width, m.Height), nil
}

// Calls returns the number of Load calls so far.
func (m *MockImageLoader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// NewImageHandle builds a handle around a blank image of the given size.
// Zero sizes default to 640x480.
func NewImageHandle(locator string, width, height int) *benchmark.ImageHandle {
	if width == 0 {
		width = 640
	}
	if height == 0 {
		height = 480
	}
	var img image.Image
	if width > 0 && height > 0 {
		img = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	return &benchmark.ImageHandle{
		Locator: locator,
		Width:   width,
		Height:  height,
		Image:   img,
	}
}
