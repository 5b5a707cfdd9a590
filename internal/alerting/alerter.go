// internal/alerting/alerter.go
package alerting

import (
	"context"
	"log"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
	"github.com/retea-se/halo-3c-dashboard/internal/metrics"
	"github.com/retea-se/halo-3c-dashboard/internal/storage"
	"github.com/retea-se/halo-3c-dashboard/internal/websocket"
)

// Alerter dispatches derived events: each one is persisted to InfluxDB and
// broadcast to websocket subscribers. A storage failure is logged and does
// not block the broadcast.
type Alerter struct {
	store *storage.InfluxService
	hub   *websocket.Hub
}

func NewAlerter(store *storage.InfluxService, hub *websocket.Hub) *Alerter {
	return &Alerter{store: store, hub: hub}
}

// Dispatch persists and broadcasts the given events.
func (a *Alerter) Dispatch(ctx context.Context, evs []events.Event) {
	if len(evs) == 0 {
		return
	}

	log.Printf("Dispatching %d events", len(evs))
	for i := range evs {
		ev := &evs[i]
		ev.EnsureID()

		if a.store != nil {
			if err := a.store.CreateEvent(ctx, ev); err != nil {
				log.Printf("Failed to store event %s: %v", ev.ID, err)
				metrics.StorageWriteErrors.Inc()
			}
		}

		if a.hub != nil {
			a.hub.BroadcastNewEvent(*ev)
		}
		metrics.EventsGenerated.WithLabelValues(string(ev.Type), string(ev.Severity)).Inc()
	}
}
