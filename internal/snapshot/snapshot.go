// internal/snapshot/snapshot.go
package snapshot

import (
	"encoding/json"
	"time"
)

// Snapshot is one full poll of the Halo sensor: an arbitrarily nested JSON
// document mapping channel paths (e.g. "co2sensor/co2") to values. It is
// read-only; detectors never mutate it.
type Snapshot map[string]any

// GetPath walks the snapshot along slash-separated path segments and returns
// the numeric leaf value, if any. Walking a list tries to match each item's
// "key" field against the segment. A dict leaf is resolved through its "data"
// member, trying the usual value keys before the final path segment itself.
//
// Absence is a normal outcome, not an error: any missing or non-numeric node
// yields (0, false).
func (s Snapshot) GetPath(path string) (float64, bool) {
	if s == nil || path == "" {
		return 0, false
	}

	parts := splitPath(path)
	var current any = map[string]any(s)

	for _, part := range parts {
		switch node := current.(type) {
		case map[string]any:
			current = node[part]
		case []any:
			current = findByKey(node, part)
		default:
			return 0, false
		}
		if current == nil {
			return 0, false
		}
	}

	if node, ok := current.(map[string]any); ok {
		data := node["data"]
		if dataMap, ok := data.(map[string]any); ok {
			for _, key := range []string{"value", "val", "v", parts[len(parts)-1]} {
				if v, ok := asNumber(dataMap[key]); ok {
					return v, true
				}
			}
			return 0, false
		}
		if v, ok := asNumber(data); ok {
			return v, true
		}
		return 0, false
	}

	return asNumber(current)
}

// GetMap returns the nested map at a slash-separated path, or nil.
func (s Snapshot) GetMap(path string) map[string]any {
	var current any = map[string]any(s)
	for _, part := range splitPath(path) {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[part]
	}
	m, _ := current.(map[string]any)
	return m
}

// GetString returns the string at a slash-separated path, or "".
func (s Snapshot) GetString(path string) string {
	var current any = map[string]any(s)
	for _, part := range splitPath(path) {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = node[part]
	}
	str, _ := current.(string)
	return str
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				parts = append(parts, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		parts = append(parts, path[start:])
	}
	return parts
}

func findByKey(list []any, key string) any {
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			if k, _ := m["key"].(string); k == key {
				return m
			}
		}
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Flatten lists every numeric field in the snapshot as "sensorkey/field".
// A "key" member on an entry overrides the top-level map key, matching how
// the device labels its sensor blocks.
func (s Snapshot) Flatten() map[string]float64 {
	out := make(map[string]float64)
	for key, value := range s {
		entry, ok := value.(map[string]any)
		if !ok {
			continue
		}
		sensorKey := key
		if k, ok := entry["key"].(string); ok && k != "" {
			sensorKey = k
		}
		switch data := entry["data"].(type) {
		case map[string]any:
			for field, fv := range data {
				if v, ok := asNumber(fv); ok {
					out[sensorKey+"/"+field] = v
				}
			}
		default:
			if v, ok := asNumber(data); ok {
				out[sensorKey] = v
			}
		}
	}
	return out
}

// BeaconObservation is one BLE beacon reading extracted from a snapshot's
// blebcn sub-structure. Ephemeral; lives for one pipeline pass.
type BeaconObservation struct {
	BeaconID   string    `json:"beacon_id"`
	Name       string    `json:"name"`
	RSSI       float64   `json:"rssi"`
	FilterRSSI float64   `json:"filter_rssi"`
	SigStr     int       `json:"sig_str"`
	Battery    int       `json:"battery"`
	Status     int       `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExtractBeacons pulls beacon observations out of the snapshot's
// blebcn/data/alert structure. Returns nil when no beacon is reported.
func (s Snapshot) ExtractBeacons(now time.Time) []BeaconObservation {
	alert := s.GetMap("blebcn/data/alert")
	if alert == nil {
		return nil
	}

	id, _ := alert["id"].(string)
	if id == "" {
		return nil
	}

	name, _ := alert["name"].(string)
	rssi, _ := asNumber(alert["rssi"])
	filterRSSI, ok := asNumber(alert["filter_rssi"])
	if !ok {
		filterRSSI = rssi
	}
	sigStr, _ := asNumber(alert["sig_str"])
	battery, _ := asNumber(alert["battery"])
	status, _ := asNumber(alert["status"])

	return []BeaconObservation{{
		BeaconID:   id,
		Name:       name,
		RSSI:       rssi,
		FilterRSSI: filterRSSI,
		SigStr:     int(sigStr),
		Battery:    int(battery),
		Status:     int(status),
		Timestamp:  now,
	}}
}
