// internal/detect/vibration.go
package detect

import (
	"fmt"
	"math"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
)

// Vibration thresholds.
const (
	vibrationMagnitudeThreshold = 1500 // milli-g
	vibrationIncreaseFactor     = 1.2  // required rise over previous sample
)

// VibrationSpikeDetector watches the accelerometer channels for sudden
// movement of the device itself (tampering). Not safe for concurrent use.
type VibrationSpikeDetector struct {
	prevMagnitude float64
}

func NewVibrationSpikeDetector() *VibrationSpikeDetector {
	return &VibrationSpikeDetector{}
}

// Evaluate computes the 3-axis magnitude and fires a TAMPER event when the
// move flag is set, the magnitude exceeds the threshold and represents at
// least a 20% rise over the previous sample. The previous magnitude is
// updated unconditionally, so consecutive large-but-similar readings fire
// once, at the transition.
func (d *VibrationSpikeDetector) Evaluate(x, y, z, moveFlag float64, deviceID string, now time.Time) []events.Event {
	magnitude := math.Sqrt(x*x + y*y + z*z)
	prev := d.prevMagnitude
	d.prevMagnitude = magnitude

	if moveFlag != 1 || magnitude <= vibrationMagnitudeThreshold || magnitude <= prev*vibrationIncreaseFactor {
		return nil
	}

	return []events.Event{{
		Timestamp: now,
		Type:      events.TypeTamper,
		Severity:  events.SeverityWarning,
		Source:    "accsensor",
		Summary:   fmt.Sprintf("Vibration spike detected: %.0f milli-g", magnitude),
		Details: map[string]any{
			"magnitude":          magnitude,
			"previous_magnitude": prev,
			"x":                  x,
			"y":                  y,
			"z":                  z,
		},
		DeviceID:       deviceID,
		CurrentValue:   events.Float(magnitude),
		ThresholdValue: events.Float(vibrationMagnitudeThreshold),
	}}
}
