// internal/events/model.go
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what kind of event occurred. Covers the Halo 3C
// device-reported conditions plus the events this system derives itself
// (beacon, sound, system).
type Type string

const (
	// System events
	TypeNoise           Type = "NOISE"
	TypeKnock           Type = "KNOCK"
	TypeSensorThreshold Type = "SENSOR_THRESHOLD"
	TypeSystem          Type = "SYSTEM"

	// Derived sound events
	TypeSoundSpike     Type = "SOUND_SPIKE"
	TypeSoundSustained Type = "SOUND_SUSTAINED"

	// Beacon events
	TypeBeaconPanicButton Type = "BEACON_PANIC_BUTTON"
	TypeBeaconArrived     Type = "BEACON_ARRIVED"
	TypeBeaconDeparted    Type = "BEACON_DEPARTED"
	TypeBeaconLowBattery  Type = "BEACON_LOW_BATTERY"

	// Vaping/smoking conditions
	TypeVape    Type = "Vape"
	TypeTHC     Type = "THC"
	TypeMasking Type = "Masking"
	TypeSmoking Type = "Smoking"

	// Safety conditions
	TypeGunshot    Type = "Gunshot"
	TypeAggression Type = "Aggression"
	TypeTamper     Type = "Tamper"
	TypeHelp       Type = "Help"
	TypeMotion     Type = "Motion"

	// Air quality conditions
	TypeHealthIndex Type = "Health_Index"
	TypeAQI         Type = "AQI"
	TypeTVOC        Type = "TVOC"
	TypeCO2Cal      Type = "CO2cal"
	TypePM25        Type = "PM2.5"

	// Environmental conditions
	TypePM1         Type = "PM1"
	TypePM10        Type = "PM10"
	TypeHumidity    Type = "Humidity"
	TypeHumidityLow Type = "Humidity_Low"
	TypeTempC       Type = "Temp_C"
	TypeTempCLow    Type = "Temp_C_Low"
	TypeNO2         Type = "NO2"
	TypeCO          Type = "CO"
	TypeNH3         Type = "NH3"
	TypePressure    Type = "Pressure"
	TypeLight       Type = "Light"
	TypeSound       Type = "Sound"
)

// Severity classifies how serious an event is.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Status tracks the lifecycle of an event after it has been recorded.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusResolved     Status = "RESOLVED"
)

// Event is a discrete derived event. Immutable once emitted by a detector;
// the alerting layer assigns the ID before persisting.
type Event struct {
	ID               string         `json:"id,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	Type             Type           `json:"type"`
	Severity         Severity       `json:"severity"`
	Source           string         `json:"source"`
	Summary          string         `json:"summary"`
	Details          map[string]any `json:"details,omitempty"`
	Status           Status         `json:"status"`
	DeviceID         string         `json:"device_id"`
	Location         string         `json:"location,omitempty"`
	SensorMetadataID string         `json:"sensor_metadata_id,omitempty"`
	ThresholdValue   *float64       `json:"threshold_value,omitempty"`
	CurrentValue     *float64       `json:"current_value,omitempty"`
}

// EnsureID assigns a fresh UUID if the event has none, and defaults the
// status to ACTIVE.
func (e *Event) EnsureID() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = StatusActive
	}
}

// Float returns a pointer to v, for the optional value fields.
func Float(v float64) *float64 { return &v }
