// internal/logging/logging.go

// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// Setup makes a tint handler the slog default. Installing a default slog
// handler also bridges the stdlib log package, so the internals' log.Printf
// calls come out colorized too. Nothing may call log.SetOutput afterwards;
// that would sever the bridge.
func Setup(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}
