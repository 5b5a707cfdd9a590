// internal/logging/logging_test.go
package logging

import (
	"bytes"
	"log"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogPrintfFlowsThroughHandler(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, slog.LevelDebug)
	t.Cleanup(func() { Setup(os.Stderr, slog.LevelDebug) })

	log.Printf("poll cycle complete in %dms", 42)

	assert.Contains(t, buf.String(), "poll cycle complete in 42ms")
}

func TestLevelFiltersSlogRecords(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, slog.LevelWarn)
	t.Cleanup(func() { Setup(os.Stderr, slog.LevelDebug) })

	slog.Info("quiet")
	slog.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
