// internal/detect/pipeline_test.go
package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/snapshot"
)

func TestParseConditions(t *testing.T) {
	raw := map[string]any{
		"$info$":  map[string]any{"version": 2.0},
		"Vape":    map[string]any{"state": 1.0, "rawval": 0.82},
		"Motion":  1.0,
		"Gunshot": map[string]any{"state": 0.0},
	}

	conditions := ParseConditions(raw)

	require.Len(t, conditions, 3)
	assert.Equal(t, ConditionReading{State: 1, RawVal: 0.82}, conditions["Vape"])
	assert.Equal(t, ConditionReading{State: 1}, conditions["Motion"])
	assert.Equal(t, ConditionReading{State: 0}, conditions["Gunshot"])
	_, hasInfo := conditions["$info$"]
	assert.False(t, hasInfo)
}

func TestParseConditionsEmpty(t *testing.T) {
	assert.Nil(t, ParseConditions(nil))
	assert.Nil(t, ParseConditions(map[string]any{}))
}

func TestPipelineProcessFullSnapshot(t *testing.T) {
	p := NewPipeline()
	now := time.Now()

	snap := snapshot.Snapshot{
		"blebcn": map[string]any{
			"data": map[string]any{
				"alert": map[string]any{
					"id":      "AA:BB:CC",
					"name":    "badge-1",
					"rssi":    -58.0,
					"battery": 15.0,
					"status":  1.0,
				},
			},
		},
		"accsensor": map[string]any{
			"data": map[string]any{"x": 1200.0, "y": 1200.0, "z": 600.0, "move": 1.0},
		},
	}
	conditions := map[string]ConditionReading{"Vape": {State: 1}}

	// Prime the vibration detector so the spike is a genuine rise.
	p.Vibration.Evaluate(100, 100, 100, 1, "halo-1", now.Add(-10*time.Second))

	res := p.Process(snap, conditions, "halo-1", now)

	require.Len(t, res.Presence, 1)
	assert.True(t, res.Presence[0].IsPresent)
	require.Len(t, res.Panics, 1)

	types := make(map[events.Type]int)
	for _, e := range res.Events {
		types[e.Type]++
	}
	// Arrival, panic, low battery, vape, and tamper in one pass.
	assert.Equal(t, 1, types[events.TypeBeaconArrived])
	assert.Equal(t, 1, types[events.TypeBeaconPanicButton])
	assert.Equal(t, 1, types[events.TypeBeaconLowBattery])
	assert.Equal(t, 1, types[events.TypeVape])
	assert.Equal(t, 1, types[events.TypeTamper])
}

func TestPipelineProcessEmptySnapshot(t *testing.T) {
	p := NewPipeline()

	res := p.Process(snapshot.Snapshot{}, nil, "halo-1", time.Now())

	assert.Empty(t, res.Events)
	assert.Empty(t, res.Presence)
	assert.Empty(t, res.Panics)
}

func TestPipelineEventOrdering(t *testing.T) {
	p := NewPipeline()
	now := time.Now()

	snap := snapshot.Snapshot{
		"blebcn": map[string]any{
			"data": map[string]any{
				"alert": map[string]any{"id": "AA", "rssi": -50.0, "battery": 90.0},
			},
		},
	}
	res := p.Process(snap, map[string]ConditionReading{"Motion": {State: 1}}, "halo-1", now)

	require.Len(t, res.Events, 2)
	assert.Equal(t, events.TypeBeaconArrived, res.Events[0].Type)
	assert.Equal(t, events.TypeMotion, res.Events[1].Type)
}
