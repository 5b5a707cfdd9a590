// internal/detect/sound_test.go
package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
)

// noon/3am fixed instants keep the day/night switch deterministic.
var (
	dayTime   = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	nightTime = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
)

func TestIsNightTime(t *testing.T) {
	assert.False(t, IsNightTime(dayTime))
	assert.True(t, IsNightTime(nightTime))
	assert.True(t, IsNightTime(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)))
	assert.False(t, IsNightTime(time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)))
}

func TestSoundAbsoluteSpikeDay(t *testing.T) {
	d := NewSoundSpikeDetector()

	evts := d.Analyze(90, "halo-1", dayTime)
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeSoundSpike, evts[0].Type)
	assert.Equal(t, events.SeverityCritical, evts[0].Severity)
	assert.Equal(t, "absolute_spike", evts[0].Details["detection_type"])
	require.NotNil(t, evts[0].ThresholdValue)
	assert.Equal(t, float64(85), *evts[0].ThresholdValue)
}

func TestSoundNightThresholdIsStricter(t *testing.T) {
	d := NewSoundSpikeDetector()

	// 75 dB is below the 85 dB day limit but over the 70 dB night limit.
	evts := d.Analyze(75, "halo-1", nightTime)
	require.Len(t, evts, 1)
	assert.Equal(t, events.SeverityCritical, evts[0].Severity)
	assert.Equal(t, "night", evts[0].Details["time_period"])

	d2 := NewSoundSpikeDetector()
	assert.Empty(t, d2.Analyze(75, "halo-1", dayTime))
}

func TestSoundSpikeCooldown(t *testing.T) {
	d := NewSoundSpikeDetector()

	first := d.Analyze(90, "halo-1", dayTime)
	require.Len(t, first, 1)

	// 20 s later: still inside the 60 s cooldown, and not yet long enough
	// above 70 dB to count as sustained.
	assert.Empty(t, d.Analyze(92, "halo-1", dayTime.Add(20*time.Second)))

	// A quiet reading resets the sustained timer.
	assert.Empty(t, d.Analyze(50, "halo-1", dayTime.Add(40*time.Second)))

	// Past the cooldown the detector fires again.
	again := d.Analyze(91, "halo-1", dayTime.Add(61*time.Second))
	require.Len(t, again, 1)
	assert.Equal(t, "absolute_spike", again[0].Details["detection_type"])
}

func TestSoundRelativeSpikeNeedsBaseline(t *testing.T) {
	d := NewSoundSpikeDetector()
	now := dayTime

	// 9 quiet samples: not enough history, a +25 dB jump stays silent.
	for i := 0; i < 9; i++ {
		assert.Empty(t, d.Analyze(40, "halo-1", now))
		now = now.Add(10 * time.Second)
	}
	assert.Empty(t, d.Analyze(65, "halo-1", now))

	// One more quiet sample completes the baseline; now the jump fires.
	now = now.Add(10 * time.Second)
	d.Analyze(40, "halo-1", now)

	now = now.Add(10 * time.Second)
	evts := d.Analyze(65, "halo-1", now)
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeSoundSpike, evts[0].Type)
	assert.Equal(t, events.SeverityWarning, evts[0].Severity)
	assert.Equal(t, "relative_spike", evts[0].Details["detection_type"])
	assert.InDelta(t, 40, evts[0].Details["baseline"].(float64), 1)
}

func TestSoundBaselineExcludesCurrentReading(t *testing.T) {
	d := NewSoundSpikeDetector()
	now := dayTime

	for i := 0; i < 10; i++ {
		d.Analyze(40, "halo-1", now)
		now = now.Add(10 * time.Second)
	}

	baseline, ok := d.Baseline()
	require.True(t, ok)
	assert.InDelta(t, 40, baseline, 0.01)

	// A loud reading is judged against the quiet median, not itself.
	evts := d.Analyze(62, "halo-1", now)
	require.Len(t, evts, 1)
	assert.InDelta(t, 22, evts[0].Details["increase"].(float64), 0.01)
}

func TestSoundSustainedHighFiresAfterThirtySeconds(t *testing.T) {
	d := NewSoundSpikeDetector()
	now := dayTime

	// 72 dB is over the 70 dB sustained limit but under the spike limits.
	assert.Empty(t, d.Analyze(72, "halo-1", now))
	assert.Empty(t, d.Analyze(72, "halo-1", now.Add(10*time.Second)))
	assert.Empty(t, d.Analyze(72, "halo-1", now.Add(20*time.Second)))

	evts := d.Analyze(72, "halo-1", now.Add(30*time.Second))
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeSoundSustained, evts[0].Type)
	assert.Equal(t, events.SeverityWarning, evts[0].Severity)
	assert.Equal(t, 30, evts[0].Details["duration_seconds"])
}

func TestSoundSustainedResetOnDrop(t *testing.T) {
	d := NewSoundSpikeDetector()
	now := dayTime

	d.Analyze(72, "halo-1", now)
	d.Analyze(72, "halo-1", now.Add(20*time.Second))
	// Drops below: the timer restarts from scratch.
	d.Analyze(60, "halo-1", now.Add(25*time.Second))
	assert.Empty(t, d.Analyze(72, "halo-1", now.Add(40*time.Second)))
	assert.Empty(t, d.Analyze(72, "halo-1", now.Add(60*time.Second)))

	evts := d.Analyze(72, "halo-1", now.Add(70*time.Second))
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeSoundSustained, evts[0].Type)
}

func TestSoundSustainedCooldown(t *testing.T) {
	d := NewSoundSpikeDetector()
	now := dayTime

	d.Analyze(72, "halo-1", now)
	first := d.Analyze(72, "halo-1", now.Add(31*time.Second))
	require.Len(t, first, 1)

	// Still high a minute later: suppressed by the 5 min cooldown.
	assert.Empty(t, d.Analyze(72, "halo-1", now.Add(91*time.Second)))

	evts := d.Analyze(72, "halo-1", now.Add(31*time.Second+301*time.Second))
	require.Len(t, evts, 1)
}

func TestSoundStatus(t *testing.T) {
	d := NewSoundSpikeDetector()
	for i := 0; i < 12; i++ {
		d.Analyze(42, "halo-1", dayTime.Add(time.Duration(i)*10*time.Second))
	}

	status := d.Status(dayTime.Add(2 * time.Minute))
	assert.Equal(t, true, status["active"])
	assert.Equal(t, false, status["is_night_mode"])
	assert.Equal(t, 12, status["history_size"])
	assert.InDelta(t, 42, status["current_baseline"].(float64), 0.01)
	assert.Equal(t, false, status["sustained_high_active"])
}
