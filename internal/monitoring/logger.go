// Package monitoring holds the process-wide diagnostic loggers used by the
// counting pipeline. Per-frame tracing is off by default.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var tracing atomic.Bool

// SetTracing enables or disables Tracef output.
func SetTracing(on bool) { tracing.Store(on) }

// Tracing reports whether Tracef output is enabled.
func Tracing() bool { return tracing.Load() }

// Tracef logs through Logf with a [trace] prefix when tracing is enabled.
// It is meant for per-frame detail that would swamp normal logs.
func Tracef(format string, v ...interface{}) {
	if !tracing.Load() {
		return
	}
	Logf("[trace] "+format, v...)
}
