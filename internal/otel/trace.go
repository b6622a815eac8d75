package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is read on every UI message, so it is an atomic bool
// rather than an os.Getenv call.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("SHOWMORE_TRACE") != "")
}

// TraceEnabled reports whether SHOWMORE_TRACE is set. When it is, the UI
// journals every message it receives and handles.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides the SHOWMORE_TRACE setting.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
