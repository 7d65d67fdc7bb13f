package inference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Tutortoise/inference-benchmark/benchmark"
)

// ProviderConfig configures where models are found and how they run.
type ProviderConfig struct {
	// ModelsDir holds <name>.onnx and <name>.json pairs.
	ModelsDir string

	// LibraryPath points at the onnxruntime shared library. If empty, the
	// platform default search path is used.
	LibraryPath string

	// TopK is the number of predictions returned. If 0, uses DefaultTopK.
	TopK int

	// NumThreads is the intra-op thread count. If 0, uses every CPU.
	NumThreads int

	Logger *slog.Logger
}

func (c *ProviderConfig) applyDefaults() {
	if c.ModelsDir == "" {
		c.ModelsDir = "models"
	}
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Provider loads ONNX classifiers by name.
type Provider struct {
	cfg ProviderConfig
}

func NewProvider(cfg ProviderConfig) *Provider {
	cfg.applyDefaults()
	return &Provider{cfg: cfg}
}

// The onnxruntime environment is process wide.
var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	})
	return envErr
}

// DestroyEnvironment tears down the onnxruntime environment. Call once on
// shutdown after every classifier is closed.
func DestroyEnvironment() error {
	return ort.DestroyEnvironment()
}

// Paths returns the model and metadata file for name.
func (p *Provider) Paths(name string) (modelPath, metadataPath string, err error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", "", fmt.Errorf("invalid model name %q", name)
	}
	base := filepath.Join(p.cfg.ModelsDir, name)
	return base + ".onnx", base + ".json", nil
}

// Load reads the model's metadata and creates an inference session for it.
func (p *Provider) Load(ctx context.Context, name string) (benchmark.Model, error) {
	modelPath, metadataPath, err := p.Paths(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	meta, err := ReadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := initEnvironment(p.cfg.LibraryPath); err != nil {
		return nil, err
	}

	session, err := NewModelSession(modelPath, meta, p.cfg.NumThreads)
	if err != nil {
		return nil, err
	}

	p.cfg.Logger.Info("model session created",
		"model", name,
		"input", meta.InputShape,
		"output", meta.OutputShape,
		"classes", len(meta.Classes))

	return newClassifier(session, meta, p.cfg.TopK, p.cfg.Logger.With("model", name)), nil
}
