// Package ui provides the Bubble Tea gallery for showmore.
package ui

import "github.com/abelbrown/showmore/internal/dedup"

// CrawlStarted is sent when a new crawl session begins.
type CrawlStarted struct {
	Session string
	Source  string
}

// ImageFound is sent for every URL a crawl adds to its results.
// Prepend is true for predecessors, which go before the current list.
type ImageFound struct {
	Session string
	URL     string
	Prepend bool
}

// DirectionExhausted is sent when a crawl direction stops finding images.
type DirectionExhausted struct {
	Session   string
	Direction string // "up" or "down"
}

// CrawlDone is sent when a Run or LoadMore pass returns.
type CrawlDone struct {
	Session     string
	Results     []string
	Status      string // "completed", "stopped"
	CanLoadMore bool
	Err         error
}

// DedupProgress reports fingerprinting progress.
type DedupProgress struct {
	Done  int
	Total int
}

// DuplicatesDetected carries the groups for the URLs that were checked.
type DuplicatesDetected struct {
	URLs   []string
	Groups []dedup.Group
	Failed int
	Err    error
}

// BookmarksLoaded is sent when the recorded list is read from the store.
type BookmarksLoaded struct {
	URLs []string
	Err  error
}

// BookmarkAdded is sent after a bookmark insert. Added is false when the
// URL was already recorded.
type BookmarkAdded struct {
	URL   string
	Added bool
	Err   error
}

// BookmarkRemoved is sent after a bookmark delete.
type BookmarkRemoved struct {
	URL string
	Err error
}

// BookmarksReset is sent after every bookmark is removed.
type BookmarksReset struct {
	Count int
	Err   error
}

// ImagesCaptured is sent after a page scan records its images.
type ImagesCaptured struct {
	Page  string
	Found int
	Added int
	Err   error
}

// RecordingChanged is sent when the recording flag flips.
type RecordingChanged struct {
	On  bool
	Err error
}

// ShareCreated is sent when the share service replies.
type ShareCreated struct {
	URL string
	Err error
}

// Notice is a transient status line message.
type Notice struct {
	Text  string
	Error bool
}
