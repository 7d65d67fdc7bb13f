package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Tutortoise/inference-benchmark/models"
)

// State is the phase a Controller is in.
type State int

const (
	Uninitialized State = iota
	ModelLoading
	Idle
	ImageLoading
	Classifying
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ModelLoading:
		return "model_loading"
	case Idle:
		return "idle"
	case ImageLoading:
		return "image_loading"
	case Classifying:
		return "classifying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type cyclePhase int

const (
	phaseNone cyclePhase = iota
	phaseLoading
	phaseClassifying
)

// Cycle tracks one image load and the classification that follows it.
type Cycle struct {
	Locator string

	done    chan struct{}
	err     error
	skipped bool
}

// Done is closed once the cycle has settled.
func (c *Cycle) Done() <-chan struct{} { return c.done }

// Err reports why the cycle failed. Only valid after Done is closed.
func (c *Cycle) Err() error { return c.err }

// Skipped reports whether classification was skipped because no model was
// ready. Only valid after Done is closed.
func (c *Cycle) Skipped() bool { return c.skipped }

// Wait blocks until the cycle settles or ctx is done.
func (c *Cycle) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Controller runs one benchmark session: it loads the model once, then
// loads random images on request and times their classification.
type Controller struct {
	cfg     Config
	timings *Timings
	log     *slog.Logger

	mu          sync.Mutex
	closed      bool
	initialized bool
	model       Model
	modelErr    error
	loadStart   time.Time
	loadEnd     time.Time
	phase       cyclePhase
	attempts    int
	current     *ImageHandle
	displaySize *models.DisplayDimensions
	predictions []models.Prediction
	// zero means not yet measured for the current image
	inferenceStart time.Time
	inferenceEnd   time.Time
	lastErr        error
}

// NewController creates a Controller with the given configuration
func NewController(cfg Config) (*Controller, error) {
	cfg.applyDefaults()

	if cfg.Provider == nil {
		return nil, fmt.Errorf("model provider is required")
	}
	if cfg.Loader == nil {
		return nil, fmt.Errorf("image loader is required")
	}
	if len(cfg.Catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	if cfg.MaxWidth < 0 {
		return nil, &InvalidInputError{Field: "max width", Value: float64(cfg.MaxWidth)}
	}
	if cfg.MaxHeight < 0 {
		return nil, &InvalidInputError{Field: "max height", Value: float64(cfg.MaxHeight)}
	}
	cfg.Catalog = append([]string(nil), cfg.Catalog...)

	return &Controller{
		cfg:     cfg,
		timings: NewTimings(cfg.AverageOverCompleted),
		log:     cfg.Logger.With("session", cfg.SessionID),
	}, nil
}

// Initialize requests the model from the provider. It may only be called
// once; a failed load leaves the controller in ModelLoading for good.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initialized = true
	c.loadStart = c.cfg.Now()
	c.mu.Unlock()

	c.log.Info("loading model", "model", c.cfg.ModelName)
	model, err := c.cfg.Provider.Load(ctx, c.cfg.ModelName)
	end := c.cfg.Now()
	if err == nil && model == nil {
		err = errors.New("provider returned no model")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		loadErr := &ModelLoadError{Model: c.cfg.ModelName, Cause: err}
		c.modelErr = loadErr
		c.log.Error("model load failed", "model", c.cfg.ModelName, "error", err)
		return loadErr
	}

	if c.closed {
		closeModel(model)
		return ErrClosed
	}

	c.model = model
	c.loadEnd = end
	c.log.Info("model ready", "model", c.cfg.ModelName, "latency_ms", millis(end.Sub(c.loadStart)))
	return nil
}

// RequestNewImage picks a random locator from the catalog and starts
// loading and classifying it in the background. It returns ErrBusy, with
// no change to state or counters, while a previous cycle is in flight.
func (c *Controller) RequestNewImage(ctx context.Context) (*Cycle, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.phase != phaseNone {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	cycle := &Cycle{
		Locator: c.cfg.Catalog[c.cfg.Pick(len(c.cfg.Catalog))],
		done:    make(chan struct{}),
	}
	// counts attempts, not completions
	c.attempts++
	c.phase = phaseLoading
	attempt := c.attempts
	c.mu.Unlock()

	c.log.Debug("loading image", "locator", cycle.Locator, "attempt", attempt)
	go c.run(ctx, cycle)
	return cycle, nil
}

func (c *Controller) run(ctx context.Context, cycle *Cycle) {
	defer close(cycle.done)

	img, err := c.cfg.Loader.Load(ctx, cycle.Locator)
	if err == nil && img == nil {
		err = errors.New("loader returned no image")
	}
	if err != nil {
		c.abandonLoad(cycle, err)
		return
	}

	size, err := ComputeDisplaySize(img.Width, img.Height, c.cfg.MaxWidth, c.cfg.MaxHeight)
	if err != nil {
		c.abandonLoad(cycle, err)
		return
	}

	model := c.imageLoaded(img, size)
	c.classify(ctx, cycle, model, img)
}

func (c *Controller) abandonLoad(cycle *Cycle, cause error) {
	loadErr := &ImageLoadError{Locator: cycle.Locator, Cause: cause}

	c.mu.Lock()
	c.phase = phaseNone
	c.lastErr = loadErr
	c.mu.Unlock()

	cycle.err = loadErr
	c.log.Warn("image load failed", "locator", cycle.Locator, "error", cause)
}

// imageLoaded makes img current and resets the inference timestamps.
func (c *Controller) imageLoaded(img *ImageHandle, size models.DisplayDimensions) Model {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = img
	c.displaySize = &size
	c.inferenceStart = time.Time{}
	c.inferenceEnd = time.Time{}
	c.phase = phaseClassifying
	return c.model
}

func (c *Controller) classify(ctx context.Context, cycle *Cycle, model Model, img *ImageHandle) {
	if model == nil || img == nil {
		c.mu.Lock()
		c.phase = phaseNone
		c.mu.Unlock()

		cycle.skipped = true
		c.log.Debug("model not ready, skipping classification", "locator", cycle.Locator)
		return
	}

	start := c.cfg.Now()
	c.mu.Lock()
	c.inferenceStart = start
	c.mu.Unlock()

	predictions, err := model.Classify(ctx, img)
	end := c.cfg.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = phaseNone

	if err != nil {
		classifyErr := &ClassificationError{Locator: img.Locator, Cause: err}
		c.lastErr = classifyErr
		cycle.err = classifyErr
		c.log.Warn("classification failed", "locator", img.Locator, "error", err)
		return
	}

	c.inferenceEnd = end
	c.predictions = predictions
	c.lastErr = nil

	elapsed := millis(end.Sub(start))
	if err := c.timings.Record(img.Locator, elapsed); err != nil {
		c.log.Error("discarding measurement", "locator", img.Locator, "error", err)
		return
	}
	c.log.Debug("classified image",
		"locator", img.Locator,
		"inference_ms", elapsed,
		"average_ms", c.timings.AverageMs(c.attempts),
		"predictions", len(predictions))
}

// State returns the controller's current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.phase == phaseLoading:
		return ImageLoading
	case c.phase == phaseClassifying:
		return Classifying
	case c.model != nil:
		return Idle
	case c.initialized:
		return ModelLoading
	default:
		return Uninitialized
	}
}

// Attempts returns how many image loads have been started.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Timings exposes the per-locator measurements.
func (c *Controller) Timings() *Timings {
	return c.timings
}

// Current returns the image on display, or nil.
func (c *Controller) Current() (*ImageHandle, *models.DisplayDimensions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.displaySize == nil {
		return nil, nil
	}
	size := *c.displaySize
	return c.current, &size
}

// Snapshot returns a copy of everything the display layer renders.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.Snapshot{
		SessionID:          c.cfg.SessionID,
		State:              c.stateLocked().String(),
		ModelReady:         c.model != nil,
		AverageInferenceMs: c.timings.AverageMs(c.attempts),
		Attempts:           c.attempts,
		Predictions:        append([]models.Prediction{}, c.predictions...),
	}
	if c.model != nil {
		snap.ModelLoadLatencyMs = millis(c.loadEnd.Sub(c.loadStart))
	}
	if c.current != nil {
		locator := c.current.Locator
		snap.CurrentImage = &locator
	}
	if c.displaySize != nil {
		size := *c.displaySize
		snap.DisplaySize = &size
	}
	if !c.inferenceStart.IsZero() && !c.inferenceEnd.IsZero() {
		snap.InferenceMeasured = true
		snap.LastInferenceMs = millis(c.inferenceEnd.Sub(c.inferenceStart))
	}

	switch {
	case c.modelErr != nil:
		snap.Error = c.modelErr.Error()
	case c.lastErr != nil:
		snap.Error = c.lastErr.Error()
	}
	return snap
}

// Close releases the model. A model that finishes loading after Close is
// released as soon as it arrives. Snapshots stay readable.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	model := c.model
	c.mu.Unlock()

	return closeModel(model)
}

func closeModel(model Model) error {
	if closer, ok := model.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
