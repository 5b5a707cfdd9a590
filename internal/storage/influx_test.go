// internal/storage/influx_test.go
package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorHistoryFluxKeepsNewestReadings(t *testing.T) {
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	q := sensorHistoryFlux("halo-sensors", "co2sensor/co2", "halo-1", from, from.Add(24*time.Hour), 500)

	descSort := strings.Index(q, `sort(columns: ["_time"], desc: true)`)
	limit := strings.Index(q, "limit(n: 500)")
	ascSort := strings.LastIndex(q, `sort(columns: ["_time"])`)
	require.GreaterOrEqual(t, descSort, 0)
	require.GreaterOrEqual(t, limit, 0)
	require.GreaterOrEqual(t, ascSort, 0)

	// Truncation applies to the newest rows; the response stays chronological.
	assert.Less(t, descSort, limit)
	assert.Less(t, limit, ascSort)

	assert.Contains(t, q, `r["sensor_id"] == "co2sensor/co2"`)
	assert.Contains(t, q, `r["device_id"] == "halo-1"`)
	assert.Contains(t, q, `range(start: 2026-03-10T00:00:00Z, stop: 2026-03-11T00:00:00Z)`)
}
