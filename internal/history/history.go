package history

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Sample is a single timestamped price observation.
type Sample struct {
	Time  time.Time
	Price decimal.Decimal
}

// Store abstracts the rolling sample history so evaluators stay agnostic
// to the backing strategy (in-memory window, ring buffer, external store).
type Store interface {
	Append(sample Sample)
	AtOrBefore(target time.Time) (Sample, bool)
	Recent(n int) []Sample
	All() []Sample
}

// Options bound the in-memory history by time window and/or capacity.
// A zero value disables the corresponding bound; at least one must be set.
type Options struct {
	Window   time.Duration
	Capacity int
}

// History keeps a bounded, chronologically ordered sample window in memory.
type History struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	samples  []Sample
}

// New constructs an in-memory history.
func New(opts Options) *History {
	return &History{window: opts.Window, capacity: opts.Capacity}
}

// Append inserts the sample as the most recent entry and prunes anything
// older than the retention window or beyond capacity, oldest first.
func (h *History) Append(sample Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples = append(h.samples, sample)
	h.prune(sample.Time)
}

func (h *History) prune(latest time.Time) {
	if h.window > 0 {
		cutoff := latest.Add(-h.window)
		idx := 0
		for idx < len(h.samples) && h.samples[idx].Time.Before(cutoff) {
			idx++
		}
		if idx > 0 {
			h.samples = append(h.samples[:0], h.samples[idx:]...)
		}
	}
	if h.capacity > 0 && len(h.samples) > h.capacity {
		drop := len(h.samples) - h.capacity
		h.samples = append(h.samples[:0], h.samples[drop:]...)
	}
}

// AtOrBefore returns the most recent sample whose timestamp does not exceed
// target. It scans rather than assuming index/time alignment, so slightly
// out-of-order appends do not corrupt lookups.
func (h *History) AtOrBefore(target time.Time) (Sample, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var candidate Sample
	found := false
	for _, sample := range h.samples {
		if sample.Time.After(target) {
			continue
		}
		if !found || !sample.Time.Before(candidate.Time) {
			candidate = sample
			found = true
		}
	}
	return candidate, found
}

// Recent returns up to the last n samples in chronological order.
func (h *History) Recent(n int) []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || len(h.samples) == 0 {
		return nil
	}
	start := len(h.samples) - n
	if start < 0 {
		start = 0
	}
	out := make([]Sample, len(h.samples)-start)
	copy(out, h.samples[start:])
	return out
}

// All returns a copy of the full current contents, oldest first.
func (h *History) All() []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Len reports the current number of retained samples.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

var _ Store = (*History)(nil)
