package benchmark

import (
	"math"
	"sort"
	"sync"
)

// Timings maps an image locator to the duration, in milliseconds, of its
// most recent completed classification.
type Timings struct {
	mu        sync.RWMutex
	durations map[string]float64

	// sum of durations, recomputed on the next read after a write
	sum   float64
	stale bool

	overCompleted bool
}

// NewTimings returns an empty aggregator. When overCompleted is set the
// average divides by the number of recorded measurements instead of the
// attempt count passed to AverageMs.
func NewTimings(overCompleted bool) *Timings {
	return &Timings{
		durations:     make(map[string]float64),
		overCompleted: overCompleted,
	}
}

// Record stores durationMs for locator, replacing any earlier measurement
// of the same locator.
func (t *Timings) Record(locator string, durationMs float64) error {
	if durationMs < 0 || math.IsNaN(durationMs) || math.IsInf(durationMs, 0) {
		return &InvalidInputError{Field: "duration", Value: durationMs}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.durations[locator] = durationMs
	t.stale = true
	return nil
}

// AverageMs returns the sum of recorded durations divided by totalAttempts.
// Attempts still in flight count toward the denominator, so the value is
// biased low until every attempt has produced a measurement.
func (t *Timings) AverageMs(totalAttempts int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stale {
		t.sum = 0
		for _, d := range t.durations {
			t.sum += d
		}
		t.stale = false
	}

	denominator := totalAttempts
	if t.overCompleted {
		denominator = len(t.durations)
	}
	if denominator <= 0 {
		return 0
	}
	return t.sum / float64(denominator)
}

// Len returns the number of distinct locators measured.
func (t *Timings) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.durations)
}

// Entry is one locator and its latest duration.
type Entry struct {
	Locator    string  `json:"locator"`
	DurationMs float64 `json:"duration_ms"`
}

// Entries returns the recorded measurements ordered by locator.
func (t *Timings) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, 0, len(t.durations))
	for locator, d := range t.durations {
		entries = append(entries, Entry{Locator: locator, DurationMs: d})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Locator < entries[j].Locator
	})
	return entries
}
