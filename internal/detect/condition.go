// internal/detect/condition.go
package detect

import (
	"fmt"
	"sort"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
)

// ConditionReading is one entry from the device's event_state document.
type ConditionReading struct {
	State  int
	RawVal float64
}

type conditionMeta struct {
	severity events.Severity
	summary  string
}

// conditionTable maps the 26 known Halo condition identifiers to severity and
// summary text. Identifiers outside this table are tracked for edge detection
// but never produce events.
var conditionTable = map[string]conditionMeta{
	// Vaping/smoking
	"Vape":    {events.SeverityWarning, "Vape detection active"},
	"THC":     {events.SeverityWarning, "THC detection active"},
	"Masking": {events.SeverityWarning, "Masking attempt detected"},
	"Smoking": {events.SeverityWarning, "Smoking detected"},

	// Safety
	"Gunshot":    {events.SeverityCritical, "Gunshot detected"},
	"Aggression": {events.SeverityWarning, "Aggression detected"},
	"Tamper":     {events.SeverityCritical, "Tamper detected"},
	"Help":       {events.SeverityCritical, "Call for help detected"},
	"Motion":     {events.SeverityInfo, "Motion detected"},

	// Air quality
	"Health_Index": {events.SeverityWarning, "Health index warning"},
	"AQI":          {events.SeverityWarning, "AQI warning"},
	"TVOC":         {events.SeverityWarning, "TVOC level exceeded"},
	"CO2cal":       {events.SeverityWarning, "CO2 level exceeded"},
	"PM2.5":        {events.SeverityWarning, "PM2.5 level exceeded"},

	// Environmental
	"PM1":          {events.SeverityWarning, "PM1 level exceeded"},
	"PM10":         {events.SeverityWarning, "PM10 level exceeded"},
	"Humidity":     {events.SeverityWarning, "Humidity too high"},
	"Humidity_Low": {events.SeverityInfo, "Humidity too low"},
	"Temp_C":       {events.SeverityWarning, "Temperature too high"},
	"Temp_C_Low":   {events.SeverityWarning, "Temperature too low"},
	"NO2":          {events.SeverityWarning, "NO2 level exceeded"},
	"CO":           {events.SeverityCritical, "Carbon monoxide detected"},
	"NH3":          {events.SeverityWarning, "Ammonia level exceeded"},
	"Pressure":     {events.SeverityInfo, "Air pressure warning"},
	"Light":        {events.SeverityInfo, "Light level warning"},
	"Sound":        {events.SeverityInfo, "Sound level warning"},
}

// ConditionStateTracker watches the device-reported condition channels and
// fires exactly one event per rising edge. Not safe for concurrent use.
type ConditionStateTracker struct {
	wasActive map[string]bool
}

func NewConditionStateTracker() *ConditionStateTracker {
	return &ConditionStateTracker{wasActive: make(map[string]bool)}
}

// Evaluate compares each reported condition against its previous activity and
// returns events for inactive-to-active transitions. Falling edges and
// conditions that remain active produce nothing.
func (t *ConditionStateTracker) Evaluate(conditions map[string]ConditionReading, deviceID string, now time.Time) []events.Event {
	var evts []events.Event

	ids := make([]string, 0, len(conditions))
	for id := range conditions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		reading := conditions[id]
		isActive := reading.State == 1 || reading.RawVal > 0
		wasActive := t.wasActive[id]
		t.wasActive[id] = isActive

		if !isActive || wasActive {
			continue
		}

		meta, known := conditionTable[id]
		if !known {
			continue
		}

		summary := meta.summary
		if reading.RawVal != 0 {
			summary = fmt.Sprintf("%s (value: %.1f)", summary, reading.RawVal)
		}

		evt := events.Event{
			Timestamp: now,
			Type:      events.Type(id),
			Severity:  meta.severity,
			Source:    "halo-event-state",
			Summary:   summary,
			Details: map[string]any{
				"condition": id,
				"state":     reading.State,
				"rawval":    reading.RawVal,
			},
			DeviceID: deviceID,
		}
		if reading.RawVal != 0 {
			evt.CurrentValue = events.Float(reading.RawVal)
		}
		evts = append(evts, evt)
	}

	return evts
}
