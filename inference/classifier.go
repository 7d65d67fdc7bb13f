package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/Tutortoise/inference-benchmark/benchmark"
	"github.com/Tutortoise/inference-benchmark/models"
)

// runner is the part of a ModelSession the classifier drives.
type runner interface {
	Run() error
	InputData() []float32
	OutputData() []float32
	Destroy()
}

// Classifier is an ONNX image classifier. Calls are serialized because the
// session's input and output tensors are shared.
type Classifier struct {
	mu           sync.Mutex
	session      runner
	meta         Metadata
	preprocessor *Preprocessor
	topK         int
	logger       *slog.Logger
	closed       bool
}

func newClassifier(session runner, meta Metadata, topK int, logger *slog.Logger) *Classifier {
	return &Classifier{
		session:      session,
		meta:         meta,
		preprocessor: NewPreprocessor(meta.InputWidth(), meta.InputHeight(), *meta.Mean, *meta.Std),
		topK:         topK,
		logger:       logger,
	}
}

// Classify resizes img to the model input, runs inference and returns the
// top predictions.
func (c *Classifier) Classify(ctx context.Context, img *benchmark.ImageHandle) ([]models.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Image == nil {
		return nil, errors.New("no image data")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("classifier is closed")
	}

	startTotal := time.Now()
	timings := &models.ProcessingTimings{RequestID: uuid.New().String()}

	resizeStart := time.Now()
	resized := imaging.Fill(img.Image, c.meta.InputWidth(), c.meta.InputHeight(), imaging.Center, imaging.Lanczos)
	timings.Resize = time.Since(resizeStart)

	prepStart := time.Now()
	if err := c.preprocessor.Process(resized, c.session.InputData()); err != nil {
		return nil, fmt.Errorf("prepare input buffer: %w", err)
	}
	timings.Preprocess = time.Since(prepStart)

	inferStart := time.Now()
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}
	timings.Inference = time.Since(inferStart)

	postStart := time.Now()
	scores := append([]float32(nil), c.session.OutputData()...)
	if c.meta.Logits {
		scores = Softmax(scores)
	}
	predictions := TopK(scores, c.meta.Classes, c.topK)
	timings.Postprocess = time.Since(postStart)

	timings.Total = time.Since(startTotal)
	logTimings(c.logger, img.Locator, timings)

	return predictions, nil
}

// Close releases the ONNX session. Later Classify calls fail.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.session.Destroy()
	}
	return nil
}

func logTimings(logger *slog.Logger, locator string, t *models.ProcessingTimings) {
	logger.Debug("processing times",
		"request_id", t.RequestID,
		"locator", locator,
		"resize", t.Resize,
		"preprocess", t.Preprocess,
		"inference", t.Inference,
		"postprocess", t.Postprocess,
		"total", t.Total)
}
