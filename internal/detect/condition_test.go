// internal/detect/condition_test.go
package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
)

func TestConditionRisingEdgeFiresOnce(t *testing.T) {
	tracker := NewConditionStateTracker()
	now := time.Now()

	evts := tracker.Evaluate(map[string]ConditionReading{
		"Vape": {State: 1},
	}, "halo-1", now)
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeVape, evts[0].Type)
	assert.Equal(t, events.SeverityWarning, evts[0].Severity)
	assert.Equal(t, "Vape detection active", evts[0].Summary)
	assert.Equal(t, "halo-event-state", evts[0].Source)

	// Still active: nothing new.
	evts = tracker.Evaluate(map[string]ConditionReading{
		"Vape": {State: 1},
	}, "halo-1", now.Add(10*time.Second))
	assert.Empty(t, evts)
}

func TestConditionRefiresAfterClearing(t *testing.T) {
	tracker := NewConditionStateTracker()
	now := time.Now()

	states := []int{1, 1, 0, 1}
	var fired int
	for i, s := range states {
		evts := tracker.Evaluate(map[string]ConditionReading{
			"Smoking": {State: s},
		}, "halo-1", now.Add(time.Duration(i)*10*time.Second))
		fired += len(evts)
	}
	assert.Equal(t, 2, fired)
}

func TestConditionRawValActivates(t *testing.T) {
	tracker := NewConditionStateTracker()

	evts := tracker.Evaluate(map[string]ConditionReading{
		"TVOC": {State: 0, RawVal: 612.5},
	}, "halo-1", time.Now())

	require.Len(t, evts, 1)
	assert.Equal(t, "TVOC level exceeded (value: 612.5)", evts[0].Summary)
	require.NotNil(t, evts[0].CurrentValue)
	assert.Equal(t, 612.5, *evts[0].CurrentValue)
	assert.Equal(t, 612.5, evts[0].Details["rawval"])
}

func TestConditionUnknownIDTrackedButSilent(t *testing.T) {
	tracker := NewConditionStateTracker()
	now := time.Now()

	evts := tracker.Evaluate(map[string]ConditionReading{
		"Some_Future_Condition": {State: 1},
	}, "halo-1", now)
	assert.Empty(t, evts)

	// The unknown condition still participates in edge tracking.
	evts = tracker.Evaluate(map[string]ConditionReading{
		"Some_Future_Condition": {State: 1},
	}, "halo-1", now.Add(10*time.Second))
	assert.Empty(t, evts)
}

func TestConditionSeverities(t *testing.T) {
	tracker := NewConditionStateTracker()

	evts := tracker.Evaluate(map[string]ConditionReading{
		"Gunshot": {State: 1},
		"Motion":  {State: 1},
		"CO":      {State: 1},
		"Light":   {State: 1},
	}, "halo-1", time.Now())

	require.Len(t, evts, 4)
	bySev := map[events.Type]events.Severity{}
	for _, e := range evts {
		bySev[e.Type] = e.Severity
	}
	assert.Equal(t, events.SeverityCritical, bySev[events.TypeGunshot])
	assert.Equal(t, events.SeverityCritical, bySev[events.TypeCO])
	assert.Equal(t, events.SeverityInfo, bySev[events.TypeMotion])
	assert.Equal(t, events.SeverityInfo, bySev[events.TypeLight])
}

func TestConditionOutputOrderIsDeterministic(t *testing.T) {
	tracker := NewConditionStateTracker()

	evts := tracker.Evaluate(map[string]ConditionReading{
		"Vape":    {State: 1},
		"Gunshot": {State: 1},
		"Motion":  {State: 1},
	}, "halo-1", time.Now())

	require.Len(t, evts, 3)
	assert.Equal(t, events.TypeGunshot, evts[0].Type)
	assert.Equal(t, events.TypeMotion, evts[1].Type)
	assert.Equal(t, events.TypeVape, evts[2].Type)
}

func TestConditionFallingEdgeSilent(t *testing.T) {
	tracker := NewConditionStateTracker()
	now := time.Now()

	tracker.Evaluate(map[string]ConditionReading{"Help": {State: 1}}, "halo-1", now)
	evts := tracker.Evaluate(map[string]ConditionReading{"Help": {State: 0}}, "halo-1", now.Add(10*time.Second))
	assert.Empty(t, evts)
}
