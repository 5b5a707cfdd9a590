// internal/storage/memory.go
package storage

import (
	"sync"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
)

const maxBufferSize = 100 // Keep the last 100 events

// EventBuffer is an in-memory ring of recent events, serving websocket
// initial history without a round trip to InfluxDB.
type EventBuffer struct {
	mu       sync.RWMutex
	buffer   []events.Event
	capacity int
}

func NewEventBuffer() *EventBuffer {
	return &EventBuffer{
		buffer:   make([]events.Event, 0, maxBufferSize),
		capacity: maxBufferSize,
	}
}

func (b *EventBuffer) Add(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buffer) >= b.capacity {
		// Remove the oldest element
		b.buffer = b.buffer[1:]
	}
	b.buffer = append(b.buffer, ev)
}

// Recent returns up to count events, oldest first. count <= 0 returns all.
func (b *EventBuffer) Recent(count int) []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if count <= 0 || count > len(b.buffer) {
		count = len(b.buffer)
	}
	// Return a copy to avoid race conditions if the caller modifies it
	result := make([]events.Event, count)
	copy(result, b.buffer[len(b.buffer)-count:])
	return result
}

func (b *EventBuffer) All() []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]events.Event, len(b.buffer))
	copy(result, b.buffer)
	return result
}
