// internal/window/window.go
package window

import (
	"sort"
	"time"
)

// Reading is one timestamped scalar value.
type Reading struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// SignalWindow keeps a bounded time window of readings per channel. Entries
// older than the look-back are evicted on every append; within the window the
// count is unbounded.
type SignalWindow struct {
	lookback time.Duration
	readings map[string][]Reading
}

// NewSignalWindow creates a window retaining readings for the given look-back.
func NewSignalWindow(lookback time.Duration) *SignalWindow {
	return &SignalWindow{
		lookback: lookback,
		readings: make(map[string][]Reading),
	}
}

// Append records a reading for a channel and evicts entries that have fallen
// out of the look-back window relative to now.
func (w *SignalWindow) Append(channel string, value float64, now time.Time) {
	rs := append(w.readings[channel], Reading{Value: value, Timestamp: now})

	cutoff := now.Add(-w.lookback)
	idx := 0
	for idx < len(rs) && !rs[idx].Timestamp.After(cutoff) {
		idx++
	}
	w.readings[channel] = rs[idx:]
}

// Since returns the readings for a channel newer than now minus the given
// duration, oldest first. The result is a copy.
func (w *SignalWindow) Since(channel string, d time.Duration, now time.Time) []Reading {
	cutoff := now.Add(-d)
	var out []Reading
	for _, r := range w.readings[channel] {
		if r.Timestamp.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// Channels returns the channel ids currently tracked.
func (w *SignalWindow) Channels() []string {
	out := make([]string, 0, len(w.readings))
	for ch := range w.readings {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of retained readings for a channel.
func (w *SignalWindow) Len(channel string) int {
	return len(w.readings[channel])
}

// Fifo is a fixed-capacity FIFO of scalar samples; pushing past capacity
// evicts the oldest entry. Used for the sound baseline window.
type Fifo struct {
	samples []float64
	cap     int
}

// NewFifo creates a FIFO holding at most capacity samples.
func NewFifo(capacity int) *Fifo {
	return &Fifo{cap: capacity}
}

// Push appends a sample, evicting the oldest when full.
func (f *Fifo) Push(v float64) {
	if len(f.samples) >= f.cap {
		f.samples = f.samples[1:]
	}
	f.samples = append(f.samples, v)
}

// Len returns the number of held samples.
func (f *Fifo) Len() int { return len(f.samples) }

// Median returns the median of the held samples, robust against the very
// outliers the detectors look for. Returns (0, false) when empty.
func (f *Fifo) Median() (float64, bool) {
	n := len(f.samples)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, f.samples)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}
