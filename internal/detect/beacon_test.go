// internal/detect/beacon_test.go
package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/snapshot"
)

func beaconObs(id string, rssi float64, battery, status int, ts time.Time) snapshot.BeaconObservation {
	return snapshot.BeaconObservation{
		BeaconID:   id,
		Name:       "badge-" + id,
		RSSI:       rssi,
		FilterRSSI: rssi,
		Battery:    battery,
		Status:     status,
		Timestamp:  ts,
	}
}

func eventsOfType(evts []events.Event, typ events.Type) []events.Event {
	var out []events.Event
	for _, e := range evts {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestBeaconFirstSightingAboveThresholdIsArrival(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	presence, panics, evts := tracker.Process(
		[]snapshot.BeaconObservation{beaconObs("b1", -55, 90, 0, now)}, "halo-1")

	require.Len(t, presence, 1)
	assert.True(t, presence[0].IsPresent)
	assert.Equal(t, "badge-b1", presence[0].BeaconName)
	assert.Equal(t, "halo-1", presence[0].DeviceID)
	assert.Empty(t, panics)

	arrivals := eventsOfType(evts, events.TypeBeaconArrived)
	require.Len(t, arrivals, 1)
	assert.Equal(t, events.SeverityInfo, arrivals[0].Severity)
	assert.Equal(t, "beacon-b1", arrivals[0].Source)
	assert.Empty(t, eventsOfType(evts, events.TypeBeaconDeparted))
}

func TestBeaconFirstSightingBelowThresholdIsSilent(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	presence, _, evts := tracker.Process(
		[]snapshot.BeaconObservation{beaconObs("b1", -92, 90, 0, now)}, "halo-1")

	require.Len(t, presence, 1)
	assert.False(t, presence[0].IsPresent)
	assert.Empty(t, eventsOfType(evts, events.TypeBeaconArrived))
	assert.Empty(t, eventsOfType(evts, events.TypeBeaconDeparted))
}

func TestBeaconArrivalDepartureSymmetry(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	// -90 (away), -60 (arrives), -62 (stays), -95 (departs), -58 (arrives again)
	rssis := []float64{-90, -60, -62, -95, -58}
	var arrived, departed int
	for i, rssi := range rssis {
		_, _, evts := tracker.Process(
			[]snapshot.BeaconObservation{beaconObs("b1", rssi, 90, 0, now.Add(time.Duration(i)*time.Minute))}, "halo-1")
		arrived += len(eventsOfType(evts, events.TypeBeaconArrived))
		departed += len(eventsOfType(evts, events.TypeBeaconDeparted))
	}

	assert.Equal(t, 2, arrived)
	assert.Equal(t, 1, departed)
}

func TestBeaconDepartureDetailsUsePreviousRSSI(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	tracker.Process([]snapshot.BeaconObservation{beaconObs("b1", -60, 90, 0, now)}, "halo-1")
	_, _, evts := tracker.Process(
		[]snapshot.BeaconObservation{beaconObs("b1", -95, 90, 0, now.Add(time.Minute))}, "halo-1")

	departed := eventsOfType(evts, events.TypeBeaconDeparted)
	require.Len(t, departed, 1)
	assert.Equal(t, float64(-60), departed[0].Details["last_rssi"])
	assert.Equal(t, float64(-95), departed[0].Details["current_rssi"])
}

func TestBeaconPanicEdgeTriggering(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	// 0->1 fires, 1->1 does not, 1->0 does not, 0->1 fires again.
	statuses := []int{0, 1, 1, 0, 1}
	var panicEvents, panicRecords int
	for i, st := range statuses {
		_, panics, evts := tracker.Process(
			[]snapshot.BeaconObservation{beaconObs("b1", -60, 90, st, now.Add(time.Duration(i)*time.Second))}, "halo-1")
		panicEvents += len(eventsOfType(evts, events.TypeBeaconPanicButton))
		panicRecords += len(panics)
	}

	assert.Equal(t, 2, panicEvents)
	// A record is written for every cycle the flag is raised, not just edges.
	assert.Equal(t, 3, panicRecords)
}

func TestBeaconPanicEventIsCritical(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	_, panics, evts := tracker.Process(
		[]snapshot.BeaconObservation{beaconObs("b2", -65, 40, 1, now)}, "halo-1")

	require.Len(t, panics, 1)
	assert.Equal(t, 1, panics[0].Status)

	pe := eventsOfType(evts, events.TypeBeaconPanicButton)
	require.Len(t, pe, 1)
	assert.Equal(t, events.SeverityCritical, pe[0].Severity)
	assert.Equal(t, "Panic button activated on badge-b2", pe[0].Summary)
}

func TestBeaconLowBatteryFiresOnlyOnChange(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	// 25 normal, 15 warning, 15/15 stable (no re-fire), 8 critical.
	batteries := []int{25, 15, 15, 15, 8}
	var got []events.Event
	for i, b := range batteries {
		_, _, evts := tracker.Process(
			[]snapshot.BeaconObservation{beaconObs("b1", -60, b, 0, now.Add(time.Duration(i)*time.Minute))}, "halo-1")
		got = append(got, eventsOfType(evts, events.TypeBeaconLowBattery)...)
	}

	require.Len(t, got, 2)
	assert.Equal(t, events.SeverityWarning, got[0].Severity)
	assert.Equal(t, "warning", got[0].Details["level"])
	assert.Equal(t, events.SeverityCritical, got[1].Severity)
	assert.Equal(t, "critical", got[1].Details["level"])
}

func TestBeaconFirstSightingWithLowBatteryFires(t *testing.T) {
	tracker := NewBeaconPresenceTracker()

	_, _, evts := tracker.Process(
		[]snapshot.BeaconObservation{beaconObs("b1", -90, 12, 0, time.Now())}, "halo-1")

	low := eventsOfType(evts, events.TypeBeaconLowBattery)
	require.Len(t, low, 1)
	assert.Equal(t, events.SeverityWarning, low[0].Severity)
}

func TestBeaconNameFallsBackToID(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	obs := beaconObs("b9", -60, 90, 0, time.Now())
	obs.Name = ""

	presence, _, _ := tracker.Process([]snapshot.BeaconObservation{obs}, "halo-1")

	require.Len(t, presence, 1)
	assert.Equal(t, "b9", presence[0].BeaconName)
}

func TestBeaconMultipleBeaconsTrackedIndependently(t *testing.T) {
	tracker := NewBeaconPresenceTracker()
	now := time.Now()

	tracker.Process([]snapshot.BeaconObservation{
		beaconObs("b1", -60, 90, 0, now),
		beaconObs("b2", -90, 90, 0, now),
	}, "halo-1")

	_, _, evts := tracker.Process([]snapshot.BeaconObservation{
		beaconObs("b1", -90, 90, 0, now.Add(time.Minute)), // departs
		beaconObs("b2", -60, 90, 0, now.Add(time.Minute)), // arrives
	}, "halo-1")

	departed := eventsOfType(evts, events.TypeBeaconDeparted)
	arrived := eventsOfType(evts, events.TypeBeaconArrived)
	require.Len(t, departed, 1)
	require.Len(t, arrived, 1)
	assert.Equal(t, "beacon-b1", departed[0].Source)
	assert.Equal(t, "beacon-b2", arrived[0].Source)
}

func TestSignalStrengthLevel(t *testing.T) {
	assert.Equal(t, "very_close", SignalStrengthLevel(-50))
	assert.Equal(t, "near", SignalStrengthLevel(-70))
	assert.Equal(t, "far", SignalStrengthLevel(-85))
	assert.Equal(t, "very_far", SignalStrengthLevel(-95))
}
