package coord

import (
	"github.com/abelbrown/showmore/internal/crawl"
	"github.com/abelbrown/showmore/internal/share"
)

// Command is a unit of work for the coordinator.
type Command interface {
	command()
}

// StartCrawl stops any running crawl and starts a new one from URL.
// An empty Direction uses the configured default.
type StartCrawl struct {
	URL       string
	Direction crawl.Direction
}

// LoadMore runs another pass of the current crawl.
type LoadMore struct{}

// StopCrawl halts the current crawl. It bypasses the queue.
type StopCrawl struct{}

// DetectDuplicates groups near-identical images among URLs.
type DetectDuplicates struct {
	URLs []string
}

// LoadBookmarks reads the recorded list.
type LoadBookmarks struct{}

// AddBookmark records URL.
type AddBookmark struct {
	URL string
}

// RemoveBookmark deletes URL from the recorded list.
type RemoveBookmark struct {
	URL string
}

// ResetBookmarks deletes every recorded URL.
type ResetBookmarks struct{}

// CaptureImages records every image on a page. Requires recording on.
type CaptureImages struct {
	PageURL string
}

// ToggleRecording flips the recording flag.
type ToggleRecording struct{}

// MarkOnboarded persists that the key hint was shown.
type MarkOnboarded struct{}

// CreateShare publishes a collection through the share service.
type CreateShare struct {
	Request share.Request
}

func (StartCrawl) command()       {}
func (LoadMore) command()         {}
func (StopCrawl) command()        {}
func (DetectDuplicates) command() {}
func (LoadBookmarks) command()    {}
func (AddBookmark) command()      {}
func (RemoveBookmark) command()   {}
func (ResetBookmarks) command()   {}
func (CaptureImages) command()    {}
func (ToggleRecording) command()  {}
func (MarkOnboarded) command()    {}
func (CreateShare) command()      {}
