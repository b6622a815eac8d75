package crawl

import "github.com/abelbrown/showmore/internal/sequence"

// EventKind classifies crawl progress.
type EventKind int

const (
	// EventFound reports a URL added to the results. Down discoveries
	// belong at the front of the list, everything else at the back.
	EventFound EventKind = iota
	EventMiss
	EventExhausted
	// EventDone is sent when a Run or LoadMore pass returns.
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventFound:
		return "found"
	case EventMiss:
		return "miss"
	case EventExhausted:
		return "exhausted"
	case EventDone:
		return "done"
	}
	return "unknown"
}

// Event is a progress report from a running session.
type Event struct {
	Session   string
	Kind      EventKind
	URL       string
	Direction sequence.Direction
	Found     int // images found so far in this direction's search
	Budget    int // budget of this direction's search
}

// Prepend reports whether a found URL goes before the current results.
func (e Event) Prepend() bool {
	return e.Kind == EventFound && e.Direction == sequence.Down
}

// Observer receives events synchronously from the crawling goroutine.
// It must not call back into the session's blocking methods.
type Observer func(Event)
