// Package debug provides conditional trace logging for cograph.
//
// Tracing is enabled by setting the COGRAPH_DEBUG environment variable:
//
//	COGRAPH_DEBUG=1 cograph render main
//
// When enabled, messages are written to stderr with timestamps and a
// "cograph/debug" prefix. When disabled (default), all functions are no-ops.
//
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    debug.Log("processing %d rows", count)
//	}
package debug

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var (
	enabled atomic.Bool
	logger  = newLogger()
)

func init() {
	if os.Getenv("COGRAPH_DEBUG") != "" {
		enabled.Store(true)
	}
}

func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000000",
		Prefix:          "cograph/debug",
		Level:           log.DebugLevel,
	})
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Debugf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("layout.Assign")()
func LogEnterExit(name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	logger.Debugf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Debugf("<- %s (%v)", name, time.Since(start))
	}
}

