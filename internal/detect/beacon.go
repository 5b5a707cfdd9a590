// internal/detect/beacon.go
package detect

import (
	"fmt"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/snapshot"
)

// Beacon thresholds.
const (
	RSSIPresenceThreshold    = -80 // dBm - beacon counts as present above this
	BatteryWarningThreshold  = 20  // %
	BatteryCriticalThreshold = 10  // %
)

// PresenceRecord is the per-observation presence sample handed to storage.
type PresenceRecord struct {
	BeaconID   string
	BeaconName string
	DeviceID   string
	RSSI       float64
	FilterRSSI float64
	Battery    int
	SigStr     int
	IsPresent  bool
	Timestamp  time.Time
}

// PanicRecord is emitted in addition to the presence record whenever the
// panic flag is raised, regardless of edge.
type PanicRecord struct {
	BeaconID   string
	BeaconName string
	DeviceID   string
	Status     int
	Battery    int
	RSSI       float64
	Timestamp  time.Time
}

// BeaconPresenceTracker detects arrival, departure, panic-button presses and
// low-battery transitions per beacon. State is confined to one tracker per
// device; it is not safe for concurrent use.
type BeaconPresenceTracker struct {
	lastRSSI    map[string]float64
	lastStatus  map[string]int
	lastBattery map[string]int
}

// NewBeaconPresenceTracker creates an empty tracker. A restart loses the
// "was present" memory, so the first sighting after a restart may produce a
// spurious arrival event.
func NewBeaconPresenceTracker() *BeaconPresenceTracker {
	return &BeaconPresenceTracker{
		lastRSSI:    make(map[string]float64),
		lastStatus:  make(map[string]int),
		lastBattery: make(map[string]int),
	}
}

// Process evaluates the observations against tracked state and returns the
// presence records (always, one per observation plus panic records) and any
// edge-triggered events. State is updated unconditionally for every
// observation, after all checks.
func (t *BeaconPresenceTracker) Process(obs []snapshot.BeaconObservation, deviceID string) ([]PresenceRecord, []PanicRecord, []events.Event) {
	var presence []PresenceRecord
	var panics []PanicRecord
	var evts []events.Event

	for _, b := range obs {
		isPresent := b.RSSI > RSSIPresenceThreshold
		name := b.Name
		if name == "" {
			name = b.BeaconID
		}

		presence = append(presence, PresenceRecord{
			BeaconID:   b.BeaconID,
			BeaconName: name,
			DeviceID:   deviceID,
			RSSI:       b.RSSI,
			FilterRSSI: b.FilterRSSI,
			Battery:    b.Battery,
			SigStr:     b.SigStr,
			IsPresent:  isPresent,
			Timestamp:  b.Timestamp,
		})

		if t.panicEdge(b.BeaconID, b.Status) {
			evts = append(evts, events.Event{
				Timestamp: b.Timestamp,
				Type:      events.TypeBeaconPanicButton,
				Severity:  events.SeverityCritical,
				Source:    "beacon-" + b.BeaconID,
				Summary:   fmt.Sprintf("Panic button activated on %s", name),
				Details: map[string]any{
					"beacon_id":   b.BeaconID,
					"beacon_name": name,
					"battery":     b.Battery,
					"rssi":        b.RSSI,
				},
				DeviceID: deviceID,
			})
		}

		if t.hasArrived(b.BeaconID, b.RSSI) {
			evts = append(evts, events.Event{
				Timestamp: b.Timestamp,
				Type:      events.TypeBeaconArrived,
				Severity:  events.SeverityInfo,
				Source:    "beacon-" + b.BeaconID,
				Summary:   fmt.Sprintf("Beacon %s arrived", name),
				Details: map[string]any{
					"beacon_id":   b.BeaconID,
					"beacon_name": name,
					"rssi":        b.RSSI,
					"battery":     b.Battery,
				},
				DeviceID: deviceID,
			})
		}

		if t.hasDeparted(b.BeaconID, b.RSSI) {
			evts = append(evts, events.Event{
				Timestamp: b.Timestamp,
				Type:      events.TypeBeaconDeparted,
				Severity:  events.SeverityInfo,
				Source:    "beacon-" + b.BeaconID,
				Summary:   fmt.Sprintf("Beacon %s departed", name),
				Details: map[string]any{
					"beacon_id":    b.BeaconID,
					"beacon_name":  name,
					"last_rssi":    t.lastRSSI[b.BeaconID],
					"current_rssi": b.RSSI,
				},
				DeviceID: deviceID,
			})
		}

		if level := batteryLevel(b.Battery); level != batteryNormal {
			last, seen := t.lastBattery[b.BeaconID]
			// Only fire when the raw value moved; a stable low level must
			// not re-fire every cycle.
			if !seen || b.Battery != last {
				sev := events.SeverityWarning
				if level == batteryCritical {
					sev = events.SeverityCritical
				}
				evts = append(evts, events.Event{
					Timestamp: b.Timestamp,
					Type:      events.TypeBeaconLowBattery,
					Severity:  sev,
					Source:    "beacon-" + b.BeaconID,
					Summary:   fmt.Sprintf("Low battery on %s: %d%%", name, b.Battery),
					Details: map[string]any{
						"beacon_id":   b.BeaconID,
						"beacon_name": name,
						"battery":     b.Battery,
						"level":       string(level),
					},
					DeviceID: deviceID,
				})
			}
		}

		if b.Status == 1 {
			panics = append(panics, PanicRecord{
				BeaconID:   b.BeaconID,
				BeaconName: name,
				DeviceID:   deviceID,
				Status:     b.Status,
				Battery:    b.Battery,
				RSSI:       b.RSSI,
				Timestamp:  b.Timestamp,
			})
		}

		t.lastRSSI[b.BeaconID] = b.RSSI
		t.lastStatus[b.BeaconID] = b.Status
		t.lastBattery[b.BeaconID] = b.Battery
	}

	return presence, panics, evts
}

// hasArrived reports a below-to-above threshold transition. An unseen beacon
// defaults to -100 dBm, so a first sighting above the threshold counts.
func (t *BeaconPresenceTracker) hasArrived(beaconID string, rssi float64) bool {
	last, seen := t.lastRSSI[beaconID]
	if !seen {
		last = -100
	}
	return last <= RSSIPresenceThreshold && rssi > RSSIPresenceThreshold
}

func (t *BeaconPresenceTracker) hasDeparted(beaconID string, rssi float64) bool {
	last, seen := t.lastRSSI[beaconID]
	if !seen {
		return false
	}
	return last > RSSIPresenceThreshold && rssi <= RSSIPresenceThreshold
}

// panicEdge fires only on a 0->1 transition; 1->1 and 1->0 never re-fire.
func (t *BeaconPresenceTracker) panicEdge(beaconID string, status int) bool {
	last := t.lastStatus[beaconID]
	return last != status && status == 1
}

type battLevel string

const (
	batteryNormal   battLevel = "normal"
	batteryWarning  battLevel = "warning"
	batteryCritical battLevel = "critical"
)

func batteryLevel(battery int) battLevel {
	switch {
	case battery < BatteryCriticalThreshold:
		return batteryCritical
	case battery < BatteryWarningThreshold:
		return batteryWarning
	default:
		return batteryNormal
	}
}

// SignalStrengthLevel classifies RSSI into a coarse proximity bucket.
func SignalStrengthLevel(rssi float64) string {
	switch {
	case rssi > -60:
		return "very_close"
	case rssi > -80:
		return "near"
	case rssi > -90:
		return "far"
	default:
		return "very_far"
	}
}
