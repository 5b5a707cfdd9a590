// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict

	"github.com/retea-se/halo-3c-dashboard/internal/auth"
	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/halo"
	"github.com/retea-se/halo-3c-dashboard/internal/occupancy"
	"github.com/retea-se/halo-3c-dashboard/internal/predictive"
	"github.com/retea-se/halo-3c-dashboard/internal/storage"
	"github.com/retea-se/halo-3c-dashboard/internal/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Dashboard and API are served from different origins
}

type Handler struct {
	store      *storage.InfluxService
	hub        *websocket.Hub
	authMgr    *auth.Manager
	device     *halo.Client
	classifier *occupancy.Classifier
	engine     *predictive.Engine
	deviceID   string
}

func NewHandler(
	store *storage.InfluxService,
	hub *websocket.Hub,
	authMgr *auth.Manager,
	device *halo.Client,
	classifier *occupancy.Classifier,
	engine *predictive.Engine,
	deviceID string,
) *Handler {
	return &Handler{
		store:      store,
		hub:        hub,
		authMgr:    authMgr,
		device:     device,
		classifier: classifier,
		engine:     engine,
		deviceID:   deviceID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HandleLogin exchanges username/password for a JWT.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, role, err := h.authMgr.AuthenticateUser(req.Username, req.Password)
	if !ok {
		log.Printf("Login failed for %q: %v", req.Username, err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.authMgr.GenerateJWT(req.Username, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"role":         role,
	})
}

// HandleMe returns the identity behind the presented token or API key.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"username": auth.Username(r.Context()),
		"role":     auth.Role(r.Context()),
	})
}

// HandleLatestSensors returns the newest value per sensor channel.
func (h *Handler) HandleLatestSensors(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = h.deviceID
	}

	sensors, err := h.store.LatestSensorValues(r.Context(), deviceID)
	if err != nil {
		log.Printf("Failed to get latest sensor values: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sensors == nil {
		sensors = []storage.SensorValue{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"timestamp": time.Now().UTC(),
		"sensors":   sensors,
	})
}

// HandleSensorHistory returns readings for one channel in a time range.
func (h *Handler) HandleSensorHistory(w http.ResponseWriter, r *http.Request) {
	sensorID := r.URL.Query().Get("sensor_id")
	if sensorID == "" {
		writeError(w, http.StatusBadRequest, "sensor_id is required")
		return
	}

	from := parseTimeParam(r, "from")
	to := parseTimeParam(r, "to")
	limit := parseIntParam(r, "limit", 1000)

	history, err := h.store.SensorHistory(r.Context(), sensorID, from, to, limit, r.URL.Query().Get("device_id"))
	if err != nil {
		log.Printf("Failed to get sensor history: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []storage.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleEvents returns stored events with optional filters.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.EventFilter{
		From:     parseTimeParam(r, "from"),
		To:       parseTimeParam(r, "to"),
		Type:     events.Type(q.Get("type")),
		Severity: events.Severity(q.Get("severity")),
		Status:   events.Status(q.Get("status")),
		DeviceID: q.Get("device_id"),
		Limit:    parseIntParam(r, "limit", 100),
	}

	evs, err := h.store.QueryEvents(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to query events: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

// HandleLatestEvents returns the most recent events without filters.
func (h *Handler) HandleLatestEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	evs, err := h.store.LatestEvents(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to query latest events: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

// HandleAckEvent marks one event as acknowledged and notifies websocket
// subscribers so dashboards can clear the alarm.
func (h *Handler) HandleAckEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "event id is required")
		return
	}

	ev, err := h.store.AcknowledgeEvent(r.Context(), eventID, auth.Username(r.Context()))
	if err != nil {
		log.Printf("Failed to acknowledge event %s: %v", eventID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastStatus("event_acknowledged", ev)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"event":  ev,
	})
}

// HandleOccupancyStatus classifies occupancy from the latest stored values.
func (h *Handler) HandleOccupancyStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = h.deviceID
	}

	sensors, err := h.store.LatestSensorValues(r.Context(), deviceID)
	if err != nil {
		log.Printf("Failed to get sensor values for occupancy: %v", err)
		sensors = nil
	}

	co2 := pickSensorValue(sensors, "co2sensor/co2", "co2sensor/co2fo")
	audio := pickSensorValue(sensors, "audsensor/sum")
	pir := pickSensorValue(sensors, "pirsensor/signal", "pirsensor/val")
	light := pickSensorValue(sensors, "luxsensor/alux", "luxsensor/aluxfilt")

	result := h.classifier.Classify(co2, audio, pir, light, deviceID, time.Now().UTC())
	writeJSON(w, http.StatusOK, result)
}

// HandleOccupancyHistory returns recent classifications with statistics.
func (h *Handler) HandleOccupancyHistory(w http.ResponseWriter, r *http.Request) {
	hours := parseIntParam(r, "hours", 24)
	if hours < 1 || hours > 168 {
		writeError(w, http.StatusBadRequest, "hours must be between 1 and 168")
		return
	}

	entries, stats := h.classifier.History(time.Duration(hours)*time.Hour, time.Now().UTC())
	if entries == nil {
		entries = []occupancy.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period_hours": hours,
		"history":      entries,
		"statistics":   stats,
	})
}

// HandleOccupancyConfig exposes the active scoring thresholds.
func (h *Handler) HandleOccupancyConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, occupancy.ActiveConfig())
}

// HandlePredictiveStatus reports rule engine counters.
func (h *Handler) HandlePredictiveStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// HandlePredictiveRules lists the configured rules.
func (h *Handler) HandlePredictiveRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Rules())
}

// HandlePredictiveAlerts lists unexpired alerts.
func (h *Handler) HandlePredictiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.engine.ActiveAlerts(time.Now().UTC())
	if alerts == nil {
		alerts = []predictive.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandlePredictiveAnalyze runs the rules against the latest stored values.
func (h *Handler) HandlePredictiveAnalyze(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.store.LatestSensorValues(r.Context(), h.deviceID)
	if err != nil {
		log.Printf("Failed to get sensor values for analysis: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sensorData := make(map[string]float64)
	for _, s := range sensors {
		for _, v := range s.Values {
			sensorData[s.SensorID] = v
			break
		}
	}

	newAlerts := h.engine.Analyze(sensorData, time.Now().UTC())
	if newAlerts == nil {
		newAlerts = []predictive.Alert{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyzed_sensors": len(sensorData),
		"new_alerts":       newAlerts,
	})
}

// HandleBeacons lists known beacons with their latest state.
func (h *Handler) HandleBeacons(w http.ResponseWriter, r *http.Request) {
	beacons, err := h.store.AllBeacons(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		log.Printf("Failed to query beacons: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if beacons == nil {
		beacons = []storage.BeaconState{}
	}
	writeJSON(w, http.StatusOK, beacons)
}

// HandleBeaconHistory returns presence points for one beacon.
func (h *Handler) HandleBeaconHistory(w http.ResponseWriter, r *http.Request) {
	beaconID := chi.URLParam(r, "beaconID")
	history, err := h.store.BeaconHistory(r.Context(), beaconID,
		parseTimeParam(r, "from"), parseTimeParam(r, "to"), r.URL.Query().Get("device_id"))
	if err != nil {
		log.Printf("Failed to query beacon history: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []storage.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleBeaconAlerts returns stored panic observations.
func (h *Handler) HandleBeaconAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.BeaconAlerts(r.Context(),
		parseTimeParam(r, "from"), parseTimeParam(r, "to"), r.URL.Query().Get("device_id"))
	if err != nil {
		log.Printf("Failed to query beacon alerts: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if alerts == nil {
		alerts = []storage.BeaconAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// HandleSystemStatus combines device heartbeat, storage health and engine
// counters into one status document.
func (h *Handler) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"timestamp":  time.Now().UTC(),
		"device_id":  h.deviceID,
		"predictive": h.engine.Status(),
		"websocket": map[string]any{
			"connected_clients": h.hub.ClientCount(),
		},
	}

	if h.device != nil {
		status["heartbeat"] = h.device.Heartbeat()
	}

	influx := "ok"
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		influx = "unreachable: " + err.Error()
	}
	status["influxdb"] = influx

	writeJSON(w, http.StatusOK, status)
}

// HandleDeviceInfo proxies diagnostic details from the device.
func (h *Handler) HandleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	if h.device == nil {
		writeError(w, http.StatusServiceUnavailable, "no device configured")
		return
	}
	writeJSON(w, http.StatusOK, h.device.DeviceInfo(r.Context()))
}

// HandleHealth is the unauthenticated liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWebSocket upgrades connections and registers clients with the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &websocket.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 256)}
	client.Hub.RegisterClient(client)

	// Start read/write pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump()

	log.Printf("WebSocket connection established: %s", conn.RemoteAddr())
}

func parseTimeParam(r *http.Request, name string) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// pickSensorValue returns the first available value among candidate sensor
// ids, preferring a field matching the channel name, then "value", then any.
func pickSensorValue(sensors []storage.SensorValue, candidates ...string) *float64 {
	for _, id := range candidates {
		for _, s := range sensors {
			if s.SensorID != id {
				continue
			}
			if len(s.Values) == 0 {
				continue
			}
			for _, key := range []string{fieldNameOf(id), "value"} {
				if v, ok := s.Values[key]; ok {
					return &v
				}
			}
			for _, v := range s.Values {
				return &v
			}
		}
	}
	return nil
}

func fieldNameOf(sensorID string) string {
	for i := len(sensorID) - 1; i >= 0; i-- {
		if sensorID[i] == '/' {
			return sensorID[i+1:]
		}
	}
	return sensorID
}
