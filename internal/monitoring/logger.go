// Package monitoring holds the diagnostic loggers shared by the light-curve
// packages.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var debug atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug enables or disables Debugf output.
func SetDebug(on bool) { debug.Store(on) }

// Debugf logs through Logf only when debug output is enabled. Per-object
// fit and augmentation details go here.
func Debugf(format string, v ...interface{}) {
	if debug.Load() {
		Logf(format, v...)
	}
}
