// internal/collector/collector.go

// Package collector runs the poll loop against the Halo device: fetch the
// state snapshot, persist readings, derive events and feed the predictive
// engine. A failed fetch skips the whole cycle so detector state only ever
// advances on real data.
package collector

import (
	"context"
	"log"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/alerting"
	"github.com/retea-se/halo-3c-dashboard/internal/detect"
	"github.com/retea-se/halo-3c-dashboard/internal/halo"
	"github.com/retea-se/halo-3c-dashboard/internal/metrics"
	"github.com/retea-se/halo-3c-dashboard/internal/predictive"
	"github.com/retea-se/halo-3c-dashboard/internal/storage"
	"github.com/retea-se/halo-3c-dashboard/internal/websocket"
)

// Collector owns the detectors and drives one device.
type Collector struct {
	device   *halo.Client
	store    *storage.InfluxService
	alerter  *alerting.Alerter
	pipeline *detect.Pipeline
	sound    *detect.SoundSpikeDetector
	engine   *predictive.Engine
	hub      *websocket.Hub // optional; nil in headless mode
	deviceID string
	interval time.Duration
}

func New(
	device *halo.Client,
	store *storage.InfluxService,
	alerter *alerting.Alerter,
	engine *predictive.Engine,
	hub *websocket.Hub,
	deviceID string,
	interval time.Duration,
) *Collector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Collector{
		device:   device,
		store:    store,
		alerter:  alerter,
		pipeline: detect.NewPipeline(),
		sound:    detect.NewSoundSpikeDetector(),
		engine:   engine,
		hub:      hub,
		deviceID: deviceID,
		interval: interval,
	}
}

// Sound exposes the sound detector for status endpoints.
func (c *Collector) Sound() *detect.SoundSpikeDetector {
	return c.sound
}

// Run polls until the context is cancelled.
func (c *Collector) Run(ctx context.Context) {
	log.Printf("Starting collection loop (interval: %s)", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// First cycle immediately rather than one interval in.
	c.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Collector stopped")
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *Collector) poll(ctx context.Context) {
	now := time.Now().UTC()

	fetchStart := time.Now()
	snap, err := c.device.LatestState(ctx)
	fetchTime := time.Since(fetchStart)
	metrics.PollDuration.Observe(fetchTime.Seconds())

	if err != nil {
		metrics.PollCycles.WithLabelValues("fetch_failed").Inc()
		if werr := c.store.WriteHeartbeat(ctx, false, 0, err.Error(), now); werr != nil {
			log.Printf("Failed to write heartbeat: %v", werr)
		}
		log.Printf("Failed to fetch device state, retrying next cycle: %v", err)
		return
	}

	if err := c.store.WriteHeartbeat(ctx, true, float64(fetchTime.Milliseconds()), "", now); err != nil {
		log.Printf("Failed to write heartbeat: %v", err)
	}

	if err := c.store.WriteSensorData(ctx, snap, now); err != nil {
		log.Printf("Failed to write sensor data: %v", err)
		metrics.StorageWriteErrors.Inc()
	}

	// Condition flags come from a second endpoint; a failure there still
	// lets the rest of the cycle run.
	var conditions map[string]detect.ConditionReading
	if eventState, err := c.device.EventState(ctx); err != nil {
		log.Printf("Failed to fetch event state: %v", err)
	} else {
		conditions = detect.ParseConditions(eventState)
	}

	result := c.pipeline.Process(snap, conditions, c.deviceID, now)

	if len(result.Presence) > 0 {
		if err := c.store.WriteBeaconPresence(ctx, result.Presence); err != nil {
			log.Printf("Failed to write beacon presence: %v", err)
			metrics.StorageWriteErrors.Inc()
		}
	}
	if len(result.Panics) > 0 {
		if err := c.store.WriteBeaconAlerts(ctx, result.Panics); err != nil {
			log.Printf("Failed to write beacon alerts: %v", err)
			metrics.StorageWriteErrors.Inc()
		}
	}

	evs := result.Events
	if level, ok := snap.GetPath("audsensor/data/sum"); ok {
		evs = append(evs, c.sound.Analyze(level, c.deviceID, now)...)
	}

	c.alerter.Dispatch(ctx, evs)

	// Feed every numeric channel to the rule engine and evaluate.
	channels := snap.Flatten()
	alerts := c.engine.Analyze(channels, now)
	for _, alert := range alerts {
		log.Printf("Predictive alert: %s (%s, confidence %.2f)", alert.Title, alert.Priority, alert.Confidence)
		metrics.PredictiveAlerts.WithLabelValues(alert.RuleID).Inc()
		if c.hub != nil {
			c.hub.BroadcastStatus("predictive_alert", alert)
		}
	}

	metrics.PollCycles.WithLabelValues("ok").Inc()
}
