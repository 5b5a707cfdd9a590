// internal/occupancy/classifier.go

// Package occupancy classifies whether the monitored room is occupied,
// scoring CO2, sound, PIR motion and light level contributions against dual
// thresholds. BLE beacon presence was removed from the scoring in an earlier
// revision; the breakdown keeps a beacon entry hard-wired to zero so API
// consumers see a stable shape.
package occupancy

import (
	"sync"
	"time"
)

// State is the tri-state classification result.
type State string

const (
	StateOccupied  State = "occupied"
	StateVacant    State = "vacant"
	StateUncertain State = "uncertain"
)

// Signal thresholds.
const (
	CO2HighThreshold   = 800 // ppm - strong occupancy indication
	CO2MediumThreshold = 600 // ppm - possible occupancy
	CO2Baseline        = 420 // ppm - outdoor level

	AudioHighThreshold   = 55 // dB
	AudioMediumThreshold = 45 // dB
	AudioBaseline        = 35 // dB

	PIRHighThreshold   = 1.0 // active motion
	PIRMediumThreshold = 0.5 // possible motion

	LightHighThreshold   = 300 // lux - strong lighting
	LightMediumThreshold = 200 // lux - lights on
	LightBaseline        = 50  // lux - dark/natural light

	OccupiedThreshold = 3
	VacantThreshold   = 1
)

const historyCapacity = 100

// Breakdown holds the per-signal point contributions. The total score is
// always the sum of the entries.
type Breakdown struct {
	CO2    int `json:"co2"`
	Audio  int `json:"audio"`
	PIR    int `json:"pir"`
	Light  int `json:"light"`
	Beacon int `json:"beacon"`
}

// Total returns the summed score.
func (b Breakdown) Total() int {
	return b.CO2 + b.Audio + b.PIR + b.Light + b.Beacon
}

// Classification is one classify result.
type Classification struct {
	State      State     `json:"state"`
	Occupied   bool      `json:"occupied"`
	Score      int       `json:"score"`
	Threshold  int       `json:"threshold"`
	Confidence string    `json:"confidence"`
	Breakdown  Breakdown `json:"score_breakdown"`
	Timestamp  time.Time `json:"timestamp"`
	DeviceID   string    `json:"device_id"`
}

// HistoryEntry is one recorded classification, kept for trend statistics.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state"`
	Score     int       `json:"score"`
}

// Classifier scores sensor values into a tri-state occupancy classification
// with a confidence estimate, and keeps a bounded in-memory history of past
// classifications. Safe for concurrent use.
type Classifier struct {
	mu         sync.Mutex
	lastState  State
	lastChange time.Time
	history    []HistoryEntry
}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify scores the given sensor values. All inputs are optional: a nil
// pointer means the sensor produced no reading this cycle and contributes
// zero points. The result is appended to the classifier's history.
func (c *Classifier) Classify(co2, audio, pir, light *float64, deviceID string, now time.Time) Classification {
	breakdown := Score(co2, audio, pir, light)
	score := breakdown.Total()

	var state State
	switch {
	case score >= OccupiedThreshold:
		state = StateOccupied
	case score <= VacantThreshold:
		state = StateVacant
	default:
		state = StateUncertain
	}

	result := Classification{
		State:      state,
		Occupied:   state == StateOccupied,
		Score:      score,
		Threshold:  OccupiedThreshold,
		Confidence: Confidence(score, breakdown),
		Breakdown:  breakdown,
		Timestamp:  now,
		DeviceID:   deviceID,
	}

	c.recordHistory(state, score, now)
	return result
}

// Score computes the per-signal contributions. Each signal scores
// independently; missing values contribute zero.
func Score(co2, audio, pir, light *float64) Breakdown {
	var b Breakdown

	if co2 != nil {
		switch {
		case *co2 >= CO2HighThreshold:
			b.CO2 = 2
		case *co2 >= CO2MediumThreshold:
			b.CO2 = 1
		}
	}

	if audio != nil {
		switch {
		case *audio >= AudioHighThreshold:
			b.Audio = 2
		case *audio >= AudioMediumThreshold:
			b.Audio = 1
		}
	}

	if pir != nil {
		switch {
		case *pir >= PIRHighThreshold:
			b.PIR = 4
		case *pir >= PIRMediumThreshold:
			b.PIR = 2
		}
	}

	if light != nil {
		switch {
		case *light >= LightHighThreshold:
			b.Light = 2
		case *light >= LightMediumThreshold:
			b.Light = 1
		}
	}

	// Beacon contribution stays zero; see package comment.
	return b
}

// Confidence estimates how trustworthy a classification is. High confidence
// requires corroboration across independent sensor types: CO2 alone can
// never yield high confidence.
func Confidence(score int, b Breakdown) string {
	switch {
	case score >= 5:
		return "high"
	case score >= 4:
		if b.PIR >= 2 {
			return "high"
		}
		if b.Light >= 1 && b.CO2+b.Audio+b.PIR >= 2 {
			return "high"
		}
		return "medium"
	case score >= OccupiedThreshold:
		return "medium"
	default:
		return "low"
	}
}

func (c *Classifier) recordHistory(state State, score int, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastState != state {
		c.lastState = state
		c.lastChange = now
	}

	c.history = append(c.history, HistoryEntry{Timestamp: now, State: state, Score: score})
	if len(c.history) > historyCapacity {
		c.history = c.history[len(c.history)-historyCapacity:]
	}
}

// Config exposes the active thresholds for the status API.
type Config struct {
	CO2High     float64 `json:"co2_high"`
	CO2Medium   float64 `json:"co2_medium"`
	AudioHigh   float64 `json:"audio_high"`
	AudioMedium float64 `json:"audio_medium"`
	PIRHigh     float64 `json:"pir_high"`
	PIRMedium   float64 `json:"pir_medium"`
	LightHigh   float64 `json:"light_high"`
	LightMedium float64 `json:"light_medium"`
	Occupied    int     `json:"occupied_threshold"`
	Vacant      int     `json:"vacant_threshold"`
}

// ActiveConfig returns the threshold configuration in effect.
func ActiveConfig() Config {
	return Config{
		CO2High:     CO2HighThreshold,
		CO2Medium:   CO2MediumThreshold,
		AudioHigh:   AudioHighThreshold,
		AudioMedium: AudioMediumThreshold,
		PIRHigh:     PIRHighThreshold,
		PIRMedium:   PIRMediumThreshold,
		LightHigh:   LightHighThreshold,
		LightMedium: LightMediumThreshold,
		Occupied:    OccupiedThreshold,
		Vacant:      VacantThreshold,
	}
}

// HistoryStats summarizes recent classifications.
type HistoryStats struct {
	OccupiedPercentage float64    `json:"occupied_percentage"`
	SampleCount        int        `json:"sample_count"`
	LastChange         *time.Time `json:"last_change,omitempty"`
}

// History returns the classifications newer than now minus the given period,
// along with summary statistics.
func (c *Classifier) History(period time.Duration, now time.Time) ([]HistoryEntry, HistoryStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-period)
	var recent []HistoryEntry
	occupied := 0
	for _, h := range c.history {
		if h.Timestamp.After(cutoff) {
			recent = append(recent, h)
			if h.State == StateOccupied {
				occupied++
			}
		}
	}

	total := len(recent)
	stats := HistoryStats{SampleCount: total}
	if total > 0 {
		stats.OccupiedPercentage = float64(occupied) / float64(total) * 100
	}
	if !c.lastChange.IsZero() {
		t := c.lastChange
		stats.LastChange = &t
	}

	return recent, stats
}
