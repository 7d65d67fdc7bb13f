package benchmark

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxWidth is the default display bounding box width.
	DefaultMaxWidth = 600

	// DefaultMaxHeight is the default display bounding box height.
	DefaultMaxHeight = 600

	// DefaultModelName is requested from the provider when no name is set.
	DefaultModelName = "mobilenetv2"
)

// Config holds the collaborators and settings of a Controller.
type Config struct {
	// SessionID labels log lines and snapshots.
	SessionID string

	// ModelName is passed to Provider.Load. If empty, uses DefaultModelName.
	ModelName string
	Provider  ModelProvider
	Loader    ImageLoader

	// Catalog is the ordered list of image locators to pick from. Must not be empty.
	Catalog []string

	// MaxWidth and MaxHeight bound the display size. If 0, use the defaults.
	MaxWidth  int
	MaxHeight int

	// AverageOverCompleted divides the running average by the number of
	// completed measurements instead of the number of load attempts.
	AverageOverCompleted bool

	// Logger receives lifecycle events. If nil, logs are discarded.
	Logger *slog.Logger

	// Now is the clock used for every timestamp. If nil, uses time.Now.
	Now func() time.Time

	// Pick returns an index in [0, n). If nil, picks uniformly at random.
	Pick func(n int) int
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.ModelName == "" {
		c.ModelName = DefaultModelName
	}
	if c.MaxWidth == 0 {
		c.MaxWidth = DefaultMaxWidth
	}
	if c.MaxHeight == 0 {
		c.MaxHeight = DefaultMaxHeight
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Pick == nil {
		c.Pick = rand.IntN
	}
}
