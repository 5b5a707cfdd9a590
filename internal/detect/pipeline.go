// internal/detect/pipeline.go

// Package detect holds the stateful detectors that turn raw Halo snapshots
// into discrete, deduplicated events: beacon presence, device-reported
// conditions, vibration spikes and sound spikes. All detectors take the
// current time explicitly and never perform I/O; state is confined to one
// owner per monitored device.
package detect

import (
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/snapshot"
)

// Pipeline orchestrates the per-snapshot detectors against one raw snapshot
// and aggregates their events into a single ordered list: beacon events
// first, then condition events, then vibration events.
type Pipeline struct {
	Beacons    *BeaconPresenceTracker
	Conditions *ConditionStateTracker
	Vibration  *VibrationSpikeDetector
}

// NewPipeline creates a pipeline with fresh detector state.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Beacons:    NewBeaconPresenceTracker(),
		Conditions: NewConditionStateTracker(),
		Vibration:  NewVibrationSpikeDetector(),
	}
}

// Result carries everything one pipeline pass produced.
type Result struct {
	Events   []events.Event
	Presence []PresenceRecord
	Panics   []PanicRecord
}

// Process runs all detectors against the snapshot. A nil or partial snapshot
// is not an error; channels that are absent simply contribute nothing this
// cycle.
func (p *Pipeline) Process(snap snapshot.Snapshot, conditions map[string]ConditionReading, deviceID string, now time.Time) Result {
	var res Result

	obs := snap.ExtractBeacons(now)
	if len(obs) > 0 {
		presence, panics, evts := p.Beacons.Process(obs, deviceID)
		res.Presence = presence
		res.Panics = panics
		res.Events = append(res.Events, evts...)
	}

	if len(conditions) > 0 {
		res.Events = append(res.Events, p.Conditions.Evaluate(conditions, deviceID, now)...)
	}

	if x, ok := snap.GetPath("accsensor/data/x"); ok {
		y, _ := snap.GetPath("accsensor/data/y")
		z, _ := snap.GetPath("accsensor/data/z")
		move, _ := snap.GetPath("accsensor/data/move")
		res.Events = append(res.Events, p.Vibration.Evaluate(x, y, z, move, deviceID, now)...)
	}

	return res
}

// ParseConditions converts a raw event_state document into condition
// readings. Entries may be plain numbers or {state, rawval} objects; the
// "$info$" bookkeeping entry is skipped.
func ParseConditions(eventState map[string]any) map[string]ConditionReading {
	if len(eventState) == 0 {
		return nil
	}

	out := make(map[string]ConditionReading, len(eventState))
	for id, raw := range eventState {
		if id == "$info$" {
			continue
		}
		switch v := raw.(type) {
		case map[string]any:
			var r ConditionReading
			if state, ok := v["state"].(float64); ok {
				r.State = int(state)
			}
			if rawval, ok := v["rawval"].(float64); ok {
				r.RawVal = rawval
			}
			out[id] = r
		case float64:
			out[id] = ConditionReading{State: int(v)}
		}
	}
	return out
}
