// Package debug provides conditional debug logging for mm.
//
// Debug logging is enabled by setting the MM_DEBUG environment variable:
//
//	MM_DEBUG=1 mm --game warhammer3
//
// When enabled, messages go to stderr with timestamps. When disabled (the
// default), every function here is a no-op.
package debug

import (
	"log"
	"os"
	"time"
)

var (
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("MM_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, "[MM_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control, mainly from tests.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, "[MM_DEBUG] ", log.Ltime|log.Lmicroseconds)
	}
}

// Log writes a printf-style debug message if debug logging is enabled.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs function entry and exit with timing:
//
//	defer debug.LogEnterExit("LoadCollection")()
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	logger.Printf("%s: %T = %+v", name, v, v)
}
