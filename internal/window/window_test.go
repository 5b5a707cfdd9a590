// internal/window/window_test.go
package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalWindowEviction(t *testing.T) {
	w := NewSignalWindow(time.Hour)
	now := time.Now()

	w.Append("co2sensor/co2", 400, now.Add(-90*time.Minute))
	w.Append("co2sensor/co2", 450, now.Add(-30*time.Minute))
	w.Append("co2sensor/co2", 500, now)

	// The 90-minute-old reading fell out on the last append.
	assert.Equal(t, 2, w.Len("co2sensor/co2"))
}

func TestSignalWindowSince(t *testing.T) {
	w := NewSignalWindow(4 * time.Hour)
	now := time.Now()

	for i := 0; i < 6; i++ {
		w.Append("htsensor/ctemp", float64(20+i), now.Add(time.Duration(i-5)*30*time.Minute))
	}

	recent := w.Since("htsensor/ctemp", time.Hour, now)
	require.Len(t, recent, 2)
	assert.Equal(t, float64(24), recent[0].Value)
	assert.Equal(t, float64(25), recent[1].Value)

	assert.Empty(t, w.Since("nosuch/channel", time.Hour, now))
}

func TestSignalWindowChannels(t *testing.T) {
	w := NewSignalWindow(time.Hour)
	now := time.Now()

	w.Append("htsensor/humidity", 45, now)
	w.Append("co2sensor/co2", 600, now)

	assert.Equal(t, []string{"co2sensor/co2", "htsensor/humidity"}, w.Channels())
}

func TestFifoEvictsOldest(t *testing.T) {
	f := NewFifo(3)
	for _, v := range []float64{1, 2, 3, 4} {
		f.Push(v)
	}

	assert.Equal(t, 3, f.Len())
	m, ok := f.Median()
	require.True(t, ok)
	assert.Equal(t, float64(3), m) // holds 2, 3, 4
}

func TestFifoMedian(t *testing.T) {
	f := NewFifo(10)

	_, ok := f.Median()
	assert.False(t, ok)

	f.Push(40)
	f.Push(90)
	f.Push(42)
	m, ok := f.Median()
	require.True(t, ok)
	assert.Equal(t, float64(42), m)

	f.Push(44)
	m, ok = f.Median()
	require.True(t, ok)
	assert.Equal(t, float64(43), m) // even count averages the middle pair
}
