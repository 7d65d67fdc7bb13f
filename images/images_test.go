package images_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tutortoise/inference-benchmark/images"
	"github.com/Tutortoise/inference-benchmark/models"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestParseCatalog(t *testing.T) {
	locators, err := images.ParseCatalog(strings.NewReader(`
# sample images
images/dog.jpg

  https://example.com/cat.png
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"images/dog.jpg", "https://example.com/cat.png"}, locators)

	_, err = images.ParseCatalog(strings.NewReader("# nothing\n\n"))
	assert.ErrorIs(t, err, images.ErrEmptyCatalog)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), encodePNG(t, 2, 2), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.JPG"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	locators, err := images.LoadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.JPG"), filepath.Join(dir, "b.png")}, locators)

	list := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(list, []byte("one.png\ntwo.png\n"), 0644))
	locators, err = images.LoadCatalog(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"one.png", "two.png"}, locators)

	_, err = images.LoadCatalog(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = images.LoadCatalog(t.TempDir())
	assert.ErrorIs(t, err, images.ErrEmptyCatalog)
}

func TestScanFS(t *testing.T) {
	fsys := fstest.MapFS{
		"wide.png":   {Data: []byte("x")},
		"tall.png":   {Data: []byte("x")},
		"README.txt": {Data: []byte("x")},
	}
	locators, err := images.ScanFS(fsys, images.EmbedScheme)
	require.NoError(t, err)
	assert.Equal(t, []string{"embed://tall.png", "embed://wide.png"}, locators)
}

func TestLoader_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wide.png"), encodePNG(t, 64, 36), 0644))

	loader := images.NewLoader(images.LoaderConfig{Root: dir})
	handle, err := loader.Load(context.Background(), "wide.png")
	require.NoError(t, err)
	assert.Equal(t, "wide.png", handle.Locator)
	assert.Equal(t, 64, handle.Width)
	assert.Equal(t, 36, handle.Height)
	assert.NotNil(t, handle.Image)

	handle, err = loader.Load(context.Background(), "file://"+filepath.Join(dir, "wide.png"))
	require.NoError(t, err)
	assert.Equal(t, 64, handle.Width)

	_, err = loader.Load(context.Background(), "missing.png")
	assert.Error(t, err)
}

func TestLoader_NotAnImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.png"), []byte("not an image"), 0644))

	_, err := images.NewLoader(images.LoaderConfig{Root: dir}).Load(context.Background(), "fake.png")
	assert.ErrorContains(t, err, "decode")
}

func TestLoader_Embedded(t *testing.T) {
	fsys := fstest.MapFS{"square.png": {Data: encodePNG(t, 10, 10)}}

	handle, err := images.NewLoader(images.LoaderConfig{Assets: fsys}).Load(context.Background(), "embed://square.png")
	require.NoError(t, err)
	assert.Equal(t, 10, handle.Width)

	_, err = images.NewLoader(images.LoaderConfig{}).Load(context.Background(), "embed://square.png")
	assert.Error(t, err)
}

func TestLoader_HTTP(t *testing.T) {
	body := encodePNG(t, 30, 60)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tall.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer server.Close()

	loader := images.NewLoader(images.LoaderConfig{HTTPClient: server.Client()})
	handle, err := loader.Load(context.Background(), server.URL+"/tall.png")
	require.NoError(t, err)
	assert.Equal(t, 30, handle.Width)
	assert.Equal(t, 60, handle.Height)

	_, err = loader.Load(context.Background(), server.URL+"/missing.png")
	assert.ErrorContains(t, err, "404")
}

func TestRenderPreview(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 192, 108))

	var buf bytes.Buffer
	require.NoError(t, images.RenderPreview(&buf, src, models.DisplayDimensions{Width: 60, Height: 34}))

	out, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 60, out.Bounds().Dx())
	assert.Equal(t, 34, out.Bounds().Dy())

	assert.Error(t, images.RenderPreview(&buf, src, models.DisplayDimensions{}))
}
