// internal/storage/influx.go

// Package storage persists sensor readings, beacon observations and derived
// events to InfluxDB 2.x, and serves the Flux queries behind the REST API.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/retea-se/halo-3c-dashboard/internal/detect"
	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/snapshot"
)

// InfluxService wraps one InfluxDB 2.x connection. Safe for concurrent use.
type InfluxService struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	deviceID string
}

// NewInfluxService connects to InfluxDB. The connection is lazy; a write or
// query is the first thing that actually hits the server.
func NewInfluxService(url, token, org, bucket, deviceID string) *InfluxService {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(30))
	log.Printf("Connected to InfluxDB at %s", url)
	return &InfluxService{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
		deviceID: deviceID,
	}
}

// Close shuts down the underlying client.
func (s *InfluxService) Close() {
	s.client.Close()
}

// Health pings the server.
func (s *InfluxService) Health(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influxdb ping returned not ready")
	}
	return nil
}

// WriteSensorData flattens a device state document into one point per
// numeric field, measurement "sensor_<key>" tagged with sensor_id and
// device_id.
func (s *InfluxService) WriteSensorData(ctx context.Context, state snapshot.Snapshot, ts time.Time) error {
	var points []*write.Point

	for key, value := range state {
		entry, ok := value.(map[string]any)
		if !ok {
			continue
		}
		sensorKey := key
		if k, ok := entry["key"].(string); ok && k != "" {
			sensorKey = k
		}
		measurement := "sensor_" + sensorKey

		switch data := entry["data"].(type) {
		case map[string]any:
			for fieldName, fieldValue := range data {
				// Reserved InfluxDB column names.
				if fieldName == "time" || fieldName == "_time" || fieldName == "timestamp" {
					continue
				}
				num, ok := asFloat(fieldValue)
				if !ok {
					continue
				}
				p := influxdb2.NewPoint(measurement,
					map[string]string{
						"sensor_id": sensorKey + "/" + fieldName,
						"device_id": s.deviceID,
					},
					map[string]any{fieldName: num},
					ts)
				points = append(points, p)
			}
		case float64:
			p := influxdb2.NewPoint(measurement,
				map[string]string{
					"sensor_id": sensorKey,
					"device_id": s.deviceID,
				},
				map[string]any{"value": data},
				ts)
			points = append(points, p)
		}
	}

	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write sensor data: %w", err)
	}
	return nil
}

// NewSensorPoint builds one point in the live data layout: measurement
// "sensor_<type>", tagged with the full channel path, field "value".
func (s *InfluxService) NewSensorPoint(sensorID string, value float64, ts time.Time) *write.Point {
	sensorType := sensorID
	if i := strings.IndexByte(sensorID, '/'); i > 0 {
		sensorType = sensorID[:i]
	}
	return influxdb2.NewPoint("sensor_"+sensorType,
		map[string]string{
			"sensor_id": sensorID,
			"device_id": s.deviceID,
		},
		map[string]any{"value": value},
		ts)
}

// WritePoints writes a prepared batch.
func (s *InfluxService) WritePoints(ctx context.Context, points ...*write.Point) error {
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// WriteBeaconPresence stores per-cycle beacon presence points.
func (s *InfluxService) WriteBeaconPresence(ctx context.Context, records []detect.PresenceRecord) error {
	points := make([]*write.Point, 0, len(records))
	for _, r := range records {
		p := influxdb2.NewPoint("beacon_presence",
			map[string]string{
				"beacon_id":   r.BeaconID,
				"beacon_name": r.BeaconName,
				"device_id":   r.DeviceID,
			},
			map[string]any{
				"rssi":        r.RSSI,
				"filter_rssi": r.FilterRSSI,
				"battery":     float64(r.Battery),
				"sig_str":     float64(r.SigStr),
				"is_present":  r.IsPresent,
			},
			r.Timestamp)
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write beacon presence: %w", err)
	}
	return nil
}

// WriteBeaconAlerts stores panic-button observations.
func (s *InfluxService) WriteBeaconAlerts(ctx context.Context, records []detect.PanicRecord) error {
	points := make([]*write.Point, 0, len(records))
	for _, r := range records {
		p := influxdb2.NewPoint("beacon_alerts",
			map[string]string{
				"beacon_id":   r.BeaconID,
				"beacon_name": r.BeaconName,
				"device_id":   r.DeviceID,
				"alert_type":  "panic_button",
			},
			map[string]any{
				"status":  float64(r.Status),
				"battery": float64(r.Battery),
				"rssi":    r.RSSI,
			},
			r.Timestamp)
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write beacon alerts: %w", err)
	}
	return nil
}

// WriteHeartbeat records one collector poll outcome.
func (s *InfluxService) WriteHeartbeat(ctx context.Context, connected bool, responseTimeMs float64, fetchErr string, ts time.Time) error {
	fields := map[string]any{
		"is_connected": connected,
	}
	if connected {
		fields["response_time_ms"] = responseTimeMs
	}
	if fetchErr != "" {
		fields["error"] = fetchErr
	}
	p := influxdb2.NewPoint("collector_heartbeat",
		map[string]string{"device_id": s.deviceID},
		fields, ts)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// CreateEvent persists one derived event. Tags carry the filterable
// dimensions; everything else goes into fields.
func (s *InfluxService) CreateEvent(ctx context.Context, ev *events.Event) error {
	ev.EnsureID()

	tags := map[string]string{
		"type":      string(ev.Type),
		"severity":  string(ev.Severity),
		"status":    string(ev.Status),
		"device_id": ev.DeviceID,
	}
	if ev.Location != "" {
		tags["location"] = ev.Location
	}
	if ev.Source != "" {
		tags["source"] = ev.Source
	}

	details, err := json.Marshal(ev.Details)
	if err != nil {
		details = []byte("{}")
	}

	fields := map[string]any{
		"event_id": ev.ID,
		"summary":  ev.Summary,
		"details":  string(details),
	}
	if ev.ThresholdValue != nil {
		fields["threshold_value"] = *ev.ThresholdValue
	}
	if ev.CurrentValue != nil {
		fields["current_value"] = *ev.CurrentValue
	}

	p := influxdb2.NewPoint("events", tags, fields, ev.Timestamp)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	log.Printf("Event created: %s (%s)", ev.ID, ev.Type)
	return nil
}

// EventFilter narrows an event query. Zero values mean no filter.
type EventFilter struct {
	From     time.Time
	To       time.Time
	Type     events.Type
	Severity events.Severity
	Status   events.Status
	DeviceID string
	Limit    int
}

// QueryEvents returns stored events matching the filter, newest first.
func (s *InfluxService) QueryEvents(ctx context.Context, f EventFilter) ([]events.Event, error) {
	from := f.From
	if from.IsZero() {
		from = time.Now().UTC().Add(-24 * time.Hour)
	}
	to := f.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var q strings.Builder
	fmt.Fprintf(&q, `from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r["_measurement"] == "events")
`, s.bucket, fluxTime(from), fluxTime(to))

	if f.Type != "" {
		fmt.Fprintf(&q, "  |> filter(fn: (r) => r[\"type\"] == %q)\n", string(f.Type))
	}
	if f.Severity != "" {
		fmt.Fprintf(&q, "  |> filter(fn: (r) => r[\"severity\"] == %q)\n", string(f.Severity))
	}
	if f.Status != "" {
		fmt.Fprintf(&q, "  |> filter(fn: (r) => r[\"status\"] == %q)\n", string(f.Status))
	}
	if f.DeviceID != "" {
		fmt.Fprintf(&q, "  |> filter(fn: (r) => r[\"device_id\"] == %q)\n", f.DeviceID)
	}

	fmt.Fprintf(&q, `  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)
`, limit)

	result, err := s.queryAPI.Query(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer result.Close()

	var out []events.Event
	for result.Next() {
		ev, ok := eventFromRow(result.Record().Values(), result.Record().Time())
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query events: %w", result.Err())
	}
	return out, nil
}

// eventFromRow rebuilds an event from a pivoted query row. Rows without an
// event_id field are noise from other measurements and are skipped.
func eventFromRow(values map[string]any, ts time.Time) (events.Event, bool) {
	id, _ := values["event_id"].(string)
	if id == "" {
		return events.Event{}, false
	}

	ev := events.Event{
		ID:        id,
		Timestamp: ts,
		Type:      events.Type(stringValue(values, "type")),
		Severity:  events.Severity(stringValue(values, "severity")),
		Status:    events.Status(stringValue(values, "status")),
		Source:    stringValue(values, "source"),
		DeviceID:  stringValue(values, "device_id"),
		Location:  stringValue(values, "location"),
		Summary:   stringValue(values, "summary"),
	}
	if ev.Source == "" {
		ev.Source = "unknown"
	}

	if raw, ok := values["details"].(string); ok && raw != "" {
		var details map[string]any
		if err := json.Unmarshal([]byte(raw), &details); err == nil {
			ev.Details = details
		}
	}
	if v, ok := asFloat(values["threshold_value"]); ok {
		ev.ThresholdValue = events.Float(v)
	}
	if v, ok := asFloat(values["current_value"]); ok {
		ev.CurrentValue = events.Float(v)
	}
	return ev, true
}

// EventByID returns the newest stored row for one event id, or nil when no
// such event exists in the last 30 days.
func (s *InfluxService) EventByID(ctx context.Context, eventID string) (*events.Event, error) {
	q := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -30d)
  |> filter(fn: (r) => r["_measurement"] == "events")
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> filter(fn: (r) => r["event_id"] == %q)
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: 1)
`, s.bucket, eventID)

	result, err := s.queryAPI.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query event %s: %w", eventID, err)
	}
	defer result.Close()

	for result.Next() {
		if ev, ok := eventFromRow(result.Record().Values(), result.Record().Time()); ok {
			return &ev, nil
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query event %s: %w", eventID, result.Err())
	}
	return nil, nil
}

// AcknowledgeEvent marks a stored event as acknowledged. Tags are immutable
// in InfluxDB, so this writes a new row for the same event_id; readers treat
// the newest row as the current state. Returns nil when the event is unknown.
func (s *InfluxService) AcknowledgeEvent(ctx context.Context, eventID, username string) (*events.Event, error) {
	ev, err := s.EventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}
	if ev.Status == events.StatusAcknowledged {
		return ev, nil
	}

	now := time.Now().UTC()
	ev.Status = events.StatusAcknowledged
	ev.Timestamp = now
	if ev.Details == nil {
		ev.Details = map[string]any{}
	}
	ev.Details["acknowledged_by"] = username
	ev.Details["acknowledged_at"] = now.Format(time.RFC3339)

	if err := s.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("acknowledge event %s: %w", eventID, err)
	}
	log.Printf("Event acknowledged: %s by %s", eventID, username)
	return ev, nil
}

// LatestEvents is QueryEvents with only a limit.
func (s *InfluxService) LatestEvents(ctx context.Context, limit int) ([]events.Event, error) {
	return s.QueryEvents(ctx, EventFilter{Limit: limit})
}

// SensorValue is one field of one sensor at a point in time.
type SensorValue struct {
	SensorID  string             `json:"sensor_id"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// LatestSensorValues returns the most recent value of every sensor field
// seen in the last hour.
func (s *InfluxService) LatestSensorValues(ctx context.Context, deviceID string) ([]SensorValue, error) {
	if deviceID == "" {
		deviceID = s.deviceID
	}

	query := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -1h)
  |> filter(fn: (r) => r["_measurement"] =~ /^sensor_/)
  |> filter(fn: (r) => r["device_id"] == %q)
  |> group(columns: ["sensor_id"])
  |> last()
`, s.bucket, deviceID)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest sensor values: %w", err)
	}
	defer result.Close()

	bySensor := make(map[string]*SensorValue)
	var order []string
	for result.Next() {
		rec := result.Record()
		sensorID := stringValue(rec.Values(), "sensor_id")
		if sensorID == "" {
			sensorID = "unknown"
		}
		sv, ok := bySensor[sensorID]
		if !ok {
			sv = &SensorValue{
				SensorID:  sensorID,
				Timestamp: rec.Time(),
				Values:    make(map[string]float64),
			}
			bySensor[sensorID] = sv
			order = append(order, sensorID)
		}
		if v, ok := asFloat(rec.Value()); ok {
			sv.Values[rec.Field()] = v
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query latest sensor values: %w", result.Err())
	}

	out := make([]SensorValue, 0, len(order))
	for _, id := range order {
		out = append(out, *bySensor[id])
	}
	return out, nil
}

// HistoryPoint is one raw reading from a sensor history query.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Field     string    `json:"field"`
	Value     float64   `json:"value"`
	SensorID  string    `json:"sensor_id"`
	DeviceID  string    `json:"device_id"`
}

// SensorHistory returns readings for one sensor channel in a time range,
// oldest first.
// sensorHistoryFlux keeps the most recent limit readings: sort newest
// first, truncate, then back to chronological order for the response.
func sensorHistoryFlux(bucket, sensorID, deviceID string, from, to time.Time, limit int) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r["_measurement"] =~ /^sensor_/)
  |> filter(fn: (r) => r["sensor_id"] == %q)
  |> filter(fn: (r) => r["device_id"] == %q)
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)
  |> sort(columns: ["_time"])
`, bucket, fluxTime(from), fluxTime(to), sensorID, deviceID, limit)
}

func (s *InfluxService) SensorHistory(ctx context.Context, sensorID string, from, to time.Time, limit int, deviceID string) ([]HistoryPoint, error) {
	if deviceID == "" {
		deviceID = s.deviceID
	}
	if from.IsZero() {
		from = time.Now().UTC().Add(-24 * time.Hour)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if limit <= 0 {
		limit = 1000
	}

	query := sensorHistoryFlux(s.bucket, sensorID, deviceID, from, to, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sensor history: %w", err)
	}
	defer result.Close()

	var out []HistoryPoint
	for result.Next() {
		rec := result.Record()
		v, ok := asFloat(rec.Value())
		if !ok {
			continue
		}
		out = append(out, HistoryPoint{
			Timestamp: rec.Time(),
			Field:     rec.Field(),
			Value:     v,
			SensorID:  sensorID,
			DeviceID:  deviceID,
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query sensor history: %w", result.Err())
	}
	return out, nil
}

// BeaconState is the reconstructed latest state of one beacon.
type BeaconState struct {
	BeaconID   string             `json:"beacon_id"`
	BeaconName string             `json:"beacon_name"`
	DeviceID   string             `json:"device_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Values     map[string]float64 `json:"values"`
	IsPresent  bool               `json:"is_present"`
}

// AllBeacons returns the latest presence state per known beacon over the
// last 24 hours.
func (s *InfluxService) AllBeacons(ctx context.Context, deviceID string) ([]BeaconState, error) {
	if deviceID == "" {
		deviceID = s.deviceID
	}

	query := fmt.Sprintf(`from(bucket: %q)
  |> range(start: -24h)
  |> filter(fn: (r) => r["_measurement"] == "beacon_presence")
  |> filter(fn: (r) => r["device_id"] == %q)
  |> group(columns: ["beacon_id", "_field"])
  |> last()
`, s.bucket, deviceID)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query beacons: %w", err)
	}
	defer result.Close()

	byBeacon := make(map[string]*BeaconState)
	var order []string
	for result.Next() {
		rec := result.Record()
		values := rec.Values()
		beaconID := stringValue(values, "beacon_id")
		if beaconID == "" {
			continue
		}
		bs, ok := byBeacon[beaconID]
		if !ok {
			bs = &BeaconState{
				BeaconID:   beaconID,
				BeaconName: stringValue(values, "beacon_name"),
				DeviceID:   deviceID,
				Timestamp:  rec.Time(),
				Values:     make(map[string]float64),
			}
			byBeacon[beaconID] = bs
			order = append(order, beaconID)
		}
		if rec.Time().After(bs.Timestamp) {
			bs.Timestamp = rec.Time()
		}
		switch v := rec.Value().(type) {
		case bool:
			if rec.Field() == "is_present" {
				bs.IsPresent = v
			}
		default:
			if num, ok := asFloat(v); ok {
				bs.Values[rec.Field()] = num
			}
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query beacons: %w", result.Err())
	}

	out := make([]BeaconState, 0, len(order))
	for _, id := range order {
		out = append(out, *byBeacon[id])
	}
	return out, nil
}

// BeaconHistory returns raw presence points for one beacon, oldest first.
func (s *InfluxService) BeaconHistory(ctx context.Context, beaconID string, from, to time.Time, deviceID string) ([]HistoryPoint, error) {
	if deviceID == "" {
		deviceID = s.deviceID
	}
	if from.IsZero() {
		from = time.Now().UTC().Add(-24 * time.Hour)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	query := fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r["_measurement"] == "beacon_presence")
  |> filter(fn: (r) => r["beacon_id"] == %q)
  |> filter(fn: (r) => r["device_id"] == %q)
  |> sort(columns: ["_time"])
`, s.bucket, fluxTime(from), fluxTime(to), beaconID, deviceID)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query beacon history: %w", err)
	}
	defer result.Close()

	var out []HistoryPoint
	for result.Next() {
		rec := result.Record()
		v, ok := asFloat(rec.Value())
		if !ok {
			continue
		}
		out = append(out, HistoryPoint{
			Timestamp: rec.Time(),
			Field:     rec.Field(),
			Value:     v,
			SensorID:  beaconID,
			DeviceID:  deviceID,
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query beacon history: %w", result.Err())
	}
	return out, nil
}

// BeaconAlert is one stored panic-button observation.
type BeaconAlert struct {
	BeaconID   string             `json:"beacon_id"`
	BeaconName string             `json:"beacon_name"`
	AlertType  string             `json:"alert_type"`
	Timestamp  time.Time          `json:"timestamp"`
	Values     map[string]float64 `json:"values"`
}

// BeaconAlerts returns panic observations in a time range, newest first.
func (s *InfluxService) BeaconAlerts(ctx context.Context, from, to time.Time, deviceID string) ([]BeaconAlert, error) {
	if deviceID == "" {
		deviceID = s.deviceID
	}
	if from.IsZero() {
		from = time.Now().UTC().Add(-24 * time.Hour)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	query := fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r["_measurement"] == "beacon_alerts")
  |> filter(fn: (r) => r["device_id"] == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: true)
`, s.bucket, fluxTime(from), fluxTime(to), deviceID)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query beacon alerts: %w", err)
	}
	defer result.Close()

	var out []BeaconAlert
	for result.Next() {
		values := result.Record().Values()
		alert := BeaconAlert{
			BeaconID:   stringValue(values, "beacon_id"),
			BeaconName: stringValue(values, "beacon_name"),
			AlertType:  stringValue(values, "alert_type"),
			Timestamp:  result.Record().Time(),
			Values:     make(map[string]float64),
		}
		for _, field := range []string{"status", "battery", "rssi"} {
			if v, ok := asFloat(values[field]); ok {
				alert.Values[field] = v
			}
		}
		out = append(out, alert)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query beacon alerts: %w", result.Err())
	}
	return out, nil
}

func fluxTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func stringValue(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
