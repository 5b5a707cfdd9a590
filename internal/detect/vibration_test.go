// internal/detect/vibration_test.go
package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
)

func TestVibrationFiresOnSharpRise(t *testing.T) {
	d := NewVibrationSpikeDetector()
	now := time.Now()

	// Baseline well under threshold, then a jump past 1500 and past 1.2x.
	evts := d.Evaluate(600, 600, 300, 1, "halo-1", now)
	assert.Empty(t, evts)

	evts = d.Evaluate(1200, 1200, 600, 1, "halo-1", now.Add(10*time.Second))
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeTamper, evts[0].Type)
	assert.Equal(t, events.SeverityWarning, evts[0].Severity)
	assert.Equal(t, "accsensor", evts[0].Source)
	require.NotNil(t, evts[0].CurrentValue)
	assert.InDelta(t, 1800, *evts[0].CurrentValue, 1)
}

func TestVibrationSustainedHighDoesNotRefire(t *testing.T) {
	d := NewVibrationSpikeDetector()
	now := time.Now()

	d.Evaluate(600, 600, 300, 1, "halo-1", now)
	first := d.Evaluate(1200, 1200, 600, 1, "halo-1", now.Add(10*time.Second))
	require.Len(t, first, 1)

	// Similar magnitude again: above threshold but not a 20% rise.
	second := d.Evaluate(1250, 1200, 600, 1, "halo-1", now.Add(20*time.Second))
	assert.Empty(t, second)
}

func TestVibrationRequiresMoveFlag(t *testing.T) {
	d := NewVibrationSpikeDetector()
	now := time.Now()

	d.Evaluate(100, 100, 100, 1, "halo-1", now)
	evts := d.Evaluate(1200, 1200, 600, 0, "halo-1", now.Add(10*time.Second))
	assert.Empty(t, evts)

	// The gated reading still updated the previous magnitude, so an
	// identical follow-up with the flag set is no longer a 20% rise.
	evts = d.Evaluate(1200, 1200, 600, 1, "halo-1", now.Add(20*time.Second))
	assert.Empty(t, evts)
}

func TestVibrationBelowThresholdNeverFires(t *testing.T) {
	d := NewVibrationSpikeDetector()
	now := time.Now()

	d.Evaluate(10, 10, 10, 1, "halo-1", now)
	// ~1386 milli-g: a huge relative rise but under the absolute floor.
	evts := d.Evaluate(800, 800, 800, 1, "halo-1", now.Add(10*time.Second))
	assert.Empty(t, evts)
}

func TestVibrationDetailsIncludePreviousMagnitude(t *testing.T) {
	d := NewVibrationSpikeDetector()
	now := time.Now()

	d.Evaluate(300, 400, 0, 1, "halo-1", now) // magnitude 500
	evts := d.Evaluate(0, 0, 2000, 1, "halo-1", now.Add(10*time.Second))

	require.Len(t, evts, 1)
	assert.InDelta(t, 500, evts[0].Details["previous_magnitude"].(float64), 0.01)
	assert.InDelta(t, 2000, evts[0].Details["magnitude"].(float64), 0.01)
}
