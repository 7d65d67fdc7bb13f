package inference

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tutortoise/inference-benchmark/benchmark"
)

type fakeRunner struct {
	input     []float32
	output    []float32
	runErr    error
	runs      int
	destroyed bool
}

func (f *fakeRunner) Run() error {
	f.runs++
	return f.runErr
}

func (f *fakeRunner) InputData() []float32  { return f.input }
func (f *fakeRunner) OutputData() []float32 { return f.output }
func (f *fakeRunner) Destroy()              { f.destroyed = true }

func testMetadata(classes ...string) Metadata {
	meta := Metadata{
		InputShape: []int64{1, 3, 4, 4},
		Classes:    classes,
	}
	meta.applyDefaults()
	return meta
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3})
	require.Len(t, probs, 3)

	var sum float32
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.InDelta(t, 0.6652, probs[2], 1e-4)
	assert.Nil(t, Softmax(nil))

	// large logits must not overflow
	probs = Softmax([]float32{1000, 1000})
	assert.InDelta(t, 0.5, probs[0], 1e-6)
}

func TestTopK(t *testing.T) {
	scores := []float32{0.1, 0.7, 0.05, 0.15}
	classes := []string{"cat", "dog", "car"}

	got := TopK(scores, classes, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "dog", got[0].Label)
	assert.InDelta(t, 0.7, got[0].Confidence, 1e-6)
	assert.Equal(t, "class_3", got[1].Label)

	assert.Len(t, TopK(scores, classes, 0), 4)
	assert.Len(t, TopK(scores, classes, 10), 4)
}

func TestTopK_ClampsConfidence(t *testing.T) {
	got := TopK([]float32{3.5, -2}, []string{"a", "b"}, 2)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, 0.0, got[1].Confidence)
}

func TestPreprocessor_PlanarLayout(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 0, color.NRGBA{R: 255, G: 0, B: 51, A: 255})

	p := NewPreprocessor(2, 2, [3]float32{0, 0, 0}, [3]float32{1, 1, 1})
	dst := make([]float32, 12)
	require.NoError(t, p.Process(img, dst))

	// R plane, then G, then B; pixel (1,0) is index 1 in each plane
	assert.InDelta(t, 1.0, dst[1], 1e-6)
	assert.InDelta(t, 0.0, dst[4+1], 1e-6)
	assert.InDelta(t, 0.2, dst[8+1], 1e-6)
	assert.InDelta(t, 0.0, dst[0], 1e-6)
}

func TestPreprocessor_GenericImageMatchesNRGBA(t *testing.T) {
	nrgba := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	rgba := image.NewRGBA(image.Rect(0, 0, 3, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			c := color.NRGBA{R: uint8(x * 80), G: uint8(y * 80), B: 10, A: 255}
			nrgba.Set(x, y, c)
			rgba.Set(x, y, c)
		}
	}

	p := NewPreprocessor(3, 3, ImageNetMean, ImageNetStd)
	a := make([]float32, 27)
	b := make([]float32, 27)
	require.NoError(t, p.Process(nrgba, a))
	require.NoError(t, p.Process(rgba, b))
	assert.InDeltaSlice(t, a, b, 1e-5)
}

func TestPreprocessor_RejectsWrongSizes(t *testing.T) {
	p := NewPreprocessor(2, 2, ImageNetMean, ImageNetStd)

	err := p.Process(image.NewNRGBA(image.Rect(0, 0, 3, 2)), make([]float32, 12))
	assert.Error(t, err)

	err = p.Process(image.NewNRGBA(image.Rect(0, 0, 2, 2)), make([]float32, 5))
	assert.Error(t, err)
}

func TestReadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"input_shape": [1, 3, 32, 32],
		"classes": ["a", "b", "c"],
		"logits": true
	}`), 0644))

	meta, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultInputName, meta.InputName)
	assert.Equal(t, DefaultOutputName, meta.OutputName)
	assert.Equal(t, []int64{1, 3}, meta.OutputShape)
	assert.Equal(t, 32, meta.InputWidth())
	assert.Equal(t, 32, meta.InputHeight())
	assert.Equal(t, ImageNetMean, *meta.Mean)
	assert.True(t, meta.Logits)
}

func TestReadMetadata_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"nhwc input", `{"input_shape": [1, 224, 224, 3], "classes": ["a"]}`},
		{"no outputs", `{"input_shape": [1, 3, 8, 8]}`},
		{"zero std", `{"classes": ["a"], "std": [1, 0, 1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "m.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))
			_, err := ReadMetadata(path)
			assert.Error(t, err)
		})
	}

	_, err := ReadMetadata(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestClassifier_Classify(t *testing.T) {
	meta := testMetadata("cat", "dog", "car")
	meta.Logits = true
	runner := &fakeRunner{
		input:  make([]float32, 3*4*4),
		output: []float32{0.5, 3, -1},
	}
	clf := newClassifier(runner, meta, 2, discardLogger())

	handle := &benchmark.ImageHandle{
		Locator: "dog.jpg",
		Width:   40,
		Height:  20,
		Image:   image.NewRGBA(image.Rect(0, 0, 40, 20)),
	}
	got, err := clf.Classify(context.Background(), handle)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "dog", got[0].Label)
	assert.Greater(t, got[0].Confidence, got[1].Confidence)
	assert.Equal(t, 1, runner.runs)

	// output tensor is not modified by softmax
	assert.Equal(t, []float32{0.5, 3, -1}, runner.output)
}

func TestClassifier_Errors(t *testing.T) {
	runner := &fakeRunner{input: make([]float32, 3*4*4), output: []float32{1}}
	clf := newClassifier(runner, testMetadata("a"), 1, discardLogger())
	handle := &benchmark.ImageHandle{Locator: "x", Width: 4, Height: 4, Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}

	_, err := clf.Classify(context.Background(), &benchmark.ImageHandle{Locator: "empty"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = clf.Classify(ctx, handle)
	assert.ErrorIs(t, err, context.Canceled)

	runner.runErr = errors.New("bad input")
	_, err = clf.Classify(context.Background(), handle)
	assert.ErrorContains(t, err, "bad input")

	require.NoError(t, clf.Close())
	require.NoError(t, clf.Close())
	assert.True(t, runner.destroyed)
	_, err = clf.Classify(context.Background(), handle)
	assert.ErrorContains(t, err, "closed")
}

func TestProvider_Paths(t *testing.T) {
	p := NewProvider(ProviderConfig{ModelsDir: "/srv/models"})

	model, meta, err := p.Paths("mobilenetv2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/models", "mobilenetv2.onnx"), model)
	assert.Equal(t, filepath.Join("/srv/models", "mobilenetv2.json"), meta)

	for _, name := range []string{"", "..", "../etc/passwd", `a\b`} {
		_, _, err := p.Paths(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestProvider_LoadMissingModel(t *testing.T) {
	p := NewProvider(ProviderConfig{ModelsDir: t.TempDir()})
	_, err := p.Load(context.Background(), "mobilenetv2")
	assert.ErrorContains(t, err, "model file not found")
}

func TestDescribeHost(t *testing.T) {
	info := DescribeHost()
	assert.NotEmpty(t, info.GOOS)
	assert.NotEmpty(t, info.GOARCH)
	assert.Positive(t, info.NumCPU)
	assert.NotNil(t, info.Features)
}
