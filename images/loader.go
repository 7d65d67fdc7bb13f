package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/Tutortoise/inference-benchmark/benchmark"
)

const (
	// EmbedScheme prefixes locators served from LoaderConfig.Assets.
	EmbedScheme = "embed://"

	DefaultMaxBytes = 20 << 20
	DefaultTimeout  = 30 * time.Second
)

// LoaderConfig configures where locators are resolved.
type LoaderConfig struct {
	// Root is prepended to relative file paths.
	Root string

	// Assets serves embed:// locators.
	Assets fs.FS

	// HTTPClient fetches http(s) locators. If nil, a client with DefaultTimeout is used.
	HTTPClient *http.Client

	// MaxBytes caps the size of a single image. If 0, uses DefaultMaxBytes.
	MaxBytes int64
}

// Loader opens and decodes images from files, embedded assets, or URLs.
type Loader struct {
	cfg LoaderConfig
}

func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Loader{cfg: cfg}
}

// Load resolves locator and decodes it, applying any EXIF orientation.
func (l *Loader) Load(ctx context.Context, locator string) (*benchmark.ImageHandle, error) {
	rc, err := l.open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, err := imaging.Decode(io.LimitReader(rc, l.cfg.MaxBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	return &benchmark.ImageHandle{
		Locator: locator,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Image:   img,
	}, nil
}

func (l *Loader) open(ctx context.Context, locator string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return l.fetch(ctx, locator)
	case strings.HasPrefix(locator, EmbedScheme):
		if l.cfg.Assets == nil {
			return nil, errors.New("no embedded assets configured")
		}
		return l.cfg.Assets.Open(strings.TrimPrefix(locator, EmbedScheme))
	default:
		path := strings.TrimPrefix(locator, "file://")
		if l.cfg.Root != "" && !filepath.IsAbs(path) {
			path = filepath.Join(l.cfg.Root, path)
		}
		return os.Open(path)
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := l.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
