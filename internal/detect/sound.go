// internal/detect/sound.go
package detect

import (
	"fmt"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/window"
)

// Day/night boundary: night runs 23:00-06:00.
const (
	nightStartHour = 23
	nightEndHour   = 6
)

// SoundThresholds holds the dB limits for one time-of-day regime.
type SoundThresholds struct {
	SpikeAbsolute    float64 `json:"spike_absolute"`
	SpikeRelative    float64 `json:"spike_relative"`
	WarningSustained float64 `json:"warning_sustained"`
	NormalMax        float64 `json:"normal_max"`
}

var (
	dayThresholds   = SoundThresholds{SpikeAbsolute: 85, SpikeRelative: 20, WarningSustained: 70, NormalMax: 65}
	nightThresholds = SoundThresholds{SpikeAbsolute: 70, SpikeRelative: 15, WarningSustained: 55, NormalMax: 50}
)

const (
	baselineWindowSize = 60               // samples, ~10 min at 10 s polling
	baselineMinSamples = 10               // no baseline before this many samples
	sustainedDuration  = 30 * time.Second // continuous time above threshold before firing
	spikeCooldown      = 60 * time.Second
	sustainedCooldown  = 300 * time.Second
)

// SoundSpikeDetector watches the sound level channel around the clock,
// detecting absolute spikes, spikes relative to a rolling median baseline,
// and sustained high levels. Night hours use stricter limits. Not safe for
// concurrent use.
type SoundSpikeDetector struct {
	history            *window.Fifo
	spikeCooldown      *Cooldown
	sustainedCooldown  *Cooldown
	sustainedHighSince time.Time
}

func NewSoundSpikeDetector() *SoundSpikeDetector {
	return &SoundSpikeDetector{
		history:           window.NewFifo(baselineWindowSize),
		spikeCooldown:     NewCooldown(spikeCooldown),
		sustainedCooldown: NewCooldown(sustainedCooldown),
	}
}

// IsNightTime reports whether the stricter night thresholds apply.
func IsNightTime(t time.Time) bool {
	hour := t.Hour()
	return hour >= nightStartHour || hour < nightEndHour
}

// Thresholds returns the limits applying at the given time.
func Thresholds(t time.Time) SoundThresholds {
	if IsNightTime(t) {
		return nightThresholds
	}
	return dayThresholds
}

// Baseline returns the current median baseline, or false while fewer than 10
// samples have been collected.
func (d *SoundSpikeDetector) Baseline() (float64, bool) {
	if d.history.Len() < baselineMinSamples {
		return 0, false
	}
	return d.history.Median()
}

// Analyze evaluates one sound level reading and returns zero to three events.
// The baseline used for the relative check excludes the current reading; the
// reading is pushed into the window after evaluation.
func (d *SoundSpikeDetector) Analyze(soundLevel float64, deviceID string, now time.Time) []events.Event {
	var evts []events.Event
	thresholds := Thresholds(now)
	baseline, haveBaseline := d.Baseline()

	period := "day"
	if IsNightTime(now) {
		period = "night"
	}

	switch {
	case soundLevel >= thresholds.SpikeAbsolute:
		if d.spikeCooldown.Allow(now) {
			evts = append(evts, events.Event{
				Timestamp: now,
				Type:      events.TypeSoundSpike,
				Severity:  events.SeverityCritical,
				Source:    "sound-spike-detector",
				Summary:   fmt.Sprintf("Critical sound level: %.1f dB (%stime)", soundLevel, period),
				Details: map[string]any{
					"sound_level":    soundLevel,
					"threshold":      thresholds.SpikeAbsolute,
					"baseline":       baselineDetail(baseline, haveBaseline),
					"time_period":    period,
					"detection_type": "absolute_spike",
				},
				DeviceID:       deviceID,
				CurrentValue:   events.Float(soundLevel),
				ThresholdValue: events.Float(thresholds.SpikeAbsolute),
			})
			d.spikeCooldown.Fire(now)
		}

	case haveBaseline && soundLevel-baseline >= thresholds.SpikeRelative:
		if d.spikeCooldown.Allow(now) {
			increase := soundLevel - baseline
			evts = append(evts, events.Event{
				Timestamp: now,
				Type:      events.TypeSoundSpike,
				Severity:  events.SeverityWarning,
				Source:    "sound-spike-detector",
				Summary:   fmt.Sprintf("Sound spike: +%.1f dB over baseline (%.1f dB)", increase, soundLevel),
				Details: map[string]any{
					"sound_level":        soundLevel,
					"baseline":           baseline,
					"increase":           increase,
					"threshold_increase": thresholds.SpikeRelative,
					"time_period":        period,
					"detection_type":     "relative_spike",
				},
				DeviceID:       deviceID,
				CurrentValue:   events.Float(soundLevel),
				ThresholdValue: events.Float(baseline + thresholds.SpikeRelative),
			})
			d.spikeCooldown.Fire(now)
		}
	}

	if soundLevel >= thresholds.WarningSustained {
		if d.sustainedHighSince.IsZero() {
			d.sustainedHighSince = now
		} else if now.Sub(d.sustainedHighSince) >= sustainedDuration {
			if d.sustainedCooldown.Allow(now) {
				duration := int(now.Sub(d.sustainedHighSince).Seconds())
				evts = append(evts, events.Event{
					Timestamp: now,
					Type:      events.TypeSoundSustained,
					Severity:  events.SeverityWarning,
					Source:    "sound-spike-detector",
					Summary:   fmt.Sprintf("Sustained high sound: %.1f dB for %ds", soundLevel, duration),
					Details: map[string]any{
						"sound_level":      soundLevel,
						"threshold":        thresholds.WarningSustained,
						"duration_seconds": duration,
						"detection_type":   "sustained_high",
					},
					DeviceID:       deviceID,
					CurrentValue:   events.Float(soundLevel),
					ThresholdValue: events.Float(thresholds.WarningSustained),
				})
				d.sustainedCooldown.Fire(now)
			}
		}
	} else {
		// Dropping below the threshold resets the timer; no partial credit.
		d.sustainedHighSince = time.Time{}
	}

	d.history.Push(soundLevel)
	return evts
}

// Status describes the detector's current state for the API.
func (d *SoundSpikeDetector) Status(now time.Time) map[string]any {
	baseline, haveBaseline := d.Baseline()
	status := map[string]any{
		"active":                true,
		"is_night_mode":         IsNightTime(now),
		"current_baseline":      baselineDetail(baseline, haveBaseline),
		"thresholds":            Thresholds(now),
		"history_size":          d.history.Len(),
		"sustained_high_active": !d.sustainedHighSince.IsZero(),
	}
	if last := d.spikeCooldown.LastFired(); !last.IsZero() {
		status["last_spike"] = last.UTC().Format(time.RFC3339)
	}
	if !d.sustainedHighSince.IsZero() {
		status["sustained_high_since"] = d.sustainedHighSince.UTC().Format(time.RFC3339)
	}
	return status
}

func baselineDetail(baseline float64, ok bool) any {
	if !ok {
		return nil
	}
	return baseline
}
