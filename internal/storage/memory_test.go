// internal/storage/memory_test.go
package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retea-se/halo-3c-dashboard/internal/events"
)

func bufEvent(i int) events.Event {
	return events.Event{
		ID:        fmt.Sprintf("ev-%d", i),
		Timestamp: time.Now(),
		Type:      events.TypeMotion,
		Severity:  events.SeverityInfo,
		Summary:   "Motion detected",
	}
}

func TestEventBufferRecent(t *testing.T) {
	b := NewEventBuffer()
	for i := 0; i < 5; i++ {
		b.Add(bufEvent(i))
	}

	recent := b.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "ev-2", recent[0].ID)
	assert.Equal(t, "ev-4", recent[2].ID)

	// Asking for more than held, or zero, returns everything.
	assert.Len(t, b.Recent(50), 5)
	assert.Len(t, b.Recent(0), 5)
}

func TestEventBufferEvictsOldest(t *testing.T) {
	b := NewEventBuffer()
	for i := 0; i < 120; i++ {
		b.Add(bufEvent(i))
	}

	all := b.All()
	require.Len(t, all, 100)
	assert.Equal(t, "ev-20", all[0].ID)
	assert.Equal(t, "ev-119", all[99].ID)
}

func TestEventBufferReturnsCopies(t *testing.T) {
	b := NewEventBuffer()
	b.Add(bufEvent(0))

	got := b.Recent(1)
	got[0].ID = "mutated"

	assert.Equal(t, "ev-0", b.All()[0].ID)
}
