// Package otel provides structured observability for showmore.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer provides live in-memory inspection for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Crawl events
	KindCrawlStart     EventKind = "crawl.start"
	KindCrawlFound     EventKind = "crawl.found"
	KindCrawlMiss      EventKind = "crawl.miss"
	KindCrawlExhausted EventKind = "crawl.exhausted"
	KindCrawlComplete  EventKind = "crawl.complete"
	KindCrawlStop      EventKind = "crawl.stop"
	KindCrawlError     EventKind = "crawl.error"

	// Duplicate detection events
	KindDedupStart    EventKind = "dedup.start"
	KindDedupComplete EventKind = "dedup.complete"
	KindDedupError    EventKind = "dedup.error"

	// Share events
	KindShareComplete EventKind = "share.complete"
	KindShareError    EventKind = "share.error"

	// Bookmark events
	KindBookmarkAdd    EventKind = "bookmark.add"
	KindBookmarkRemove EventKind = "bookmark.remove"
	KindBookmarkReset  EventKind = "bookmark.reset"
	KindCapture        EventKind = "bookmark.capture"

	// Store events
	KindStoreError EventKind = "store.error"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events, only emitted when SHOWMORE_TRACE is set
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "coord", "ui", "crawl", "main"
	SessionID string         `json:"session_id,omitempty"` // one per process run
	CrawlID   string         `json:"crawl_id,omitempty"`   // crawl session correlation ID
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	URL       string         `json:"url,omitempty"`
	Dir       string         `json:"dir,omitempty"` // "up", "down", "prev", "next"
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`   // free text
	Extra     map[string]any `json:"extra,omitempty"` // escape hatch for unusual fields
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
