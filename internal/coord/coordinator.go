// Package coord runs showmore's background work for the gallery.
//
// The UI submits commands; the coordinator executes them one at a time on
// its own goroutine and reports back with ui messages. StopCrawl skips the
// queue so it can interrupt a crawl that is still running.
package coord

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/showmore/internal/crawl"
	"github.com/abelbrown/showmore/internal/dedup"
	"github.com/abelbrown/showmore/internal/logging"
	"github.com/abelbrown/showmore/internal/otel"
	"github.com/abelbrown/showmore/internal/share"
	"github.com/abelbrown/showmore/internal/store"
	"github.com/abelbrown/showmore/internal/ui"
)

// queueSize is the capacity of the command channel.
const queueSize = 32

// shareTimeout bounds a single share request.
const shareTimeout = 60 * time.Second

// ErrNotRecording is reported when a capture is requested while
// recording is off.
var ErrNotRecording = errors.New("recording is off")

// Sender delivers messages to the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// detector interface for dependency injection (testing).
type detector interface {
	Detect(ctx context.Context, urls []string, progress dedup.Progress) (dedup.Result, error)
}

type sharer interface {
	Create(ctx context.Context, req share.Request) (string, error)
}

type pageScanner interface {
	PageImages(ctx context.Context, pageURL string) ([]string, error)
}

// Options wires the coordinator's collaborators. Detector, Sharer, Pages
// and Events are optional.
type Options struct {
	Store     *store.Store
	Prober    crawl.Prober
	Detector  detector
	Sharer    sharer
	Pages     pageScanner
	Events    *otel.Logger
	Crawl     crawl.Config
	Direction crawl.Direction
}

// Coordinator owns the active crawl session and executes UI commands.
type Coordinator struct {
	store    *store.Store
	prober   crawl.Prober
	detector detector
	sharer   sharer
	pages    pageScanner
	events   *otel.Logger
	cfg      crawl.Config
	dir      crawl.Direction
	now      func() time.Time

	cmds chan Command
	wg   sync.WaitGroup

	mu      sync.Mutex
	session *crawl.Session
}

// New creates a Coordinator. Call Start to begin processing commands.
func New(opts Options) *Coordinator {
	if opts.Direction == "" {
		opts.Direction = crawl.Both
	}
	return &Coordinator{
		store:    opts.Store,
		prober:   opts.Prober,
		detector: opts.Detector,
		sharer:   opts.Sharer,
		pages:    opts.Pages,
		events:   opts.Events,
		cfg:      opts.Crawl,
		dir:      opts.Direction,
		now:      time.Now,
		cmds:     make(chan Command, queueSize),
	}
}

// Start processes submitted commands until ctx is cancelled.
// program may be nil, in which case results are only logged.
func (c *Coordinator) Start(ctx context.Context, program Sender) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.stopSession()
				return
			case cmd := <-c.cmds:
				c.handle(ctx, program, cmd)
			}
		}
	}()
}

// Wait blocks until the command loop exits.
// Call after cancelling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Submit queues cmd. StopCrawl takes effect immediately. Submit blocks
// while the queue is full.
func (c *Coordinator) Submit(cmd Command) {
	if _, ok := cmd.(StopCrawl); ok {
		c.stopSession()
		return
	}
	c.cmds <- cmd
}

// Cmd wraps Submit as a tea.Cmd for the UI.
func (c *Coordinator) Cmd(cmd Command) tea.Cmd {
	return func() tea.Msg {
		c.Submit(cmd)
		return nil
	}
}

// Session returns the current crawl session, or nil.
func (c *Coordinator) Session() *crawl.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Coordinator) stopSession() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil || s.Status() == crawl.Stopped {
		return
	}
	s.Stop()
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCrawlStop, Comp: "coord", CrawlID: s.ID()})
}

// handle executes a single command. Exported behaviour is driven through
// Submit; tests call handle directly.
func (c *Coordinator) handle(ctx context.Context, program Sender, cmd Command) {
	switch cmd := cmd.(type) {
	case StartCrawl:
		c.startCrawl(ctx, program, cmd)
	case LoadMore:
		c.loadMore(ctx, program)
	case StopCrawl:
		c.stopSession()
	case DetectDuplicates:
		c.detectDuplicates(ctx, program, cmd.URLs)
	case LoadBookmarks:
		urls, err := c.store.BookmarkURLs()
		send(program, ui.BookmarksLoaded{URLs: urls, Err: err})
	case AddBookmark:
		c.addBookmark(program, cmd.URL)
	case RemoveBookmark:
		c.removeBookmark(program, cmd.URL)
	case ResetBookmarks:
		c.resetBookmarks(program)
	case CaptureImages:
		c.capture(ctx, program, cmd.PageURL)
	case ToggleRecording:
		on, err := c.store.ToggleRecording()
		if err != nil {
			c.events.Error(otel.KindStoreError, "coord", err)
		}
		send(program, ui.RecordingChanged{On: on, Err: err})
	case MarkOnboarded:
		if err := c.store.MarkOnboarded(); err != nil {
			logging.Warn("mark onboarded failed", "error", err)
		}
	case CreateShare:
		c.createShare(ctx, program, cmd.Request)
	default:
		logging.Warn("coord: unknown command", "type", cmd)
	}
}

func (c *Coordinator) startCrawl(ctx context.Context, program Sender, cmd StartCrawl) {
	c.stopSession()

	dir := cmd.Direction
	if dir == "" {
		dir = c.dir
	}
	s := crawl.NewSession(cmd.URL, dir, c.prober, c.cfg, c.observer(program))

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	send(program, ui.CrawlStarted{Session: s.ID(), Source: cmd.URL})
	c.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindCrawlStart,
		Comp:    "coord",
		CrawlID: s.ID(),
		URL:     cmd.URL,
		Dir:     string(dir),
		Count:   c.cfg.Budget,
	})

	start := time.Now()
	err := s.Run(ctx)
	c.finishPass(program, s, start, err)
}

func (c *Coordinator) loadMore(ctx context.Context, program Sender) {
	s := c.Session()
	if s == nil {
		send(program, ui.Notice{Text: "nothing to load: start a crawl first", Error: true})
		return
	}
	if !s.CanLoadMore() {
		send(program, ui.Notice{Text: "no more images in this sequence"})
		return
	}

	start := time.Now()
	err := s.LoadMore(ctx)
	c.finishPass(program, s, start, err)
}

func (c *Coordinator) finishPass(program Sender, s *crawl.Session, start time.Time, err error) {
	snap := s.Snapshot()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindCrawlError, Comp: "coord", CrawlID: s.ID(), Err: err.Error()})
	}
	c.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindCrawlComplete,
		Comp:    "coord",
		CrawlID: s.ID(),
		URL:     s.Source(),
		Count:   len(snap.Results),
		Dur:     time.Since(start),
		Msg:     snap.Status.String(),
	})
	send(program, ui.CrawlDone{
		Session:     s.ID(),
		Results:     snap.Results,
		Status:      snap.Status.String(),
		CanLoadMore: snap.CanLoadMore,
		Err:         err,
	})
}

// observer forwards crawl progress to the UI and the event journal.
func (c *Coordinator) observer(program Sender) crawl.Observer {
	return func(e crawl.Event) {
		switch e.Kind {
		case crawl.EventFound:
			send(program, ui.ImageFound{Session: e.Session, URL: e.URL, Prepend: e.Prepend()})
			c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCrawlFound, Comp: "crawl", CrawlID: e.Session, URL: e.URL, Dir: e.Direction.String(), Count: e.Found})
		case crawl.EventMiss:
			c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindCrawlMiss, Comp: "crawl", CrawlID: e.Session, URL: e.URL, Dir: e.Direction.String()})
		case crawl.EventExhausted:
			send(program, ui.DirectionExhausted{Session: e.Session, Direction: e.Direction.String()})
			c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCrawlExhausted, Comp: "crawl", CrawlID: e.Session, Dir: e.Direction.String(), Count: e.Found})
		}
	}
}

func (c *Coordinator) detectDuplicates(ctx context.Context, program Sender, urls []string) {
	if c.detector == nil {
		send(program, ui.Notice{Text: "duplicate detection is not available", Error: true})
		return
	}
	if len(urls) < 2 {
		send(program, ui.DuplicatesDetected{URLs: urls})
		return
	}

	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDedupStart, Comp: "coord", Count: len(urls)})
	start := time.Now()
	res, err := c.detector.Detect(ctx, urls, func(done, total int) {
		send(program, ui.DedupProgress{Done: done, Total: total})
	})
	if err != nil {
		c.events.Error(otel.KindDedupError, "coord", err)
		send(program, ui.DuplicatesDetected{URLs: urls, Err: err})
		return
	}

	c.events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindDedupComplete,
		Comp:  "coord",
		Count: res.Duplicates(),
		Dur:   time.Since(start),
		Extra: map[string]any{"groups": len(res.Groups), "failed": len(res.Failed)},
	})
	send(program, ui.DuplicatesDetected{URLs: urls, Groups: res.Groups, Failed: len(res.Failed)})
}

func (c *Coordinator) addBookmark(program Sender, url string) {
	added, err := c.store.AddBookmark(url, c.now())
	if err != nil {
		c.events.Error(otel.KindStoreError, "coord", err)
	} else if added {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindBookmarkAdd, Comp: "coord", URL: url})
	}
	send(program, ui.BookmarkAdded{URL: url, Added: added, Err: err})
}

func (c *Coordinator) removeBookmark(program Sender, url string) {
	err := c.store.RemoveBookmark(url)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.events.Error(otel.KindStoreError, "coord", err)
	} else if err == nil {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindBookmarkRemove, Comp: "coord", URL: url})
	}
	send(program, ui.BookmarkRemoved{URL: url, Err: err})
}

func (c *Coordinator) resetBookmarks(program Sender) {
	n, err := c.store.ResetBookmarks()
	if err != nil {
		c.events.Error(otel.KindStoreError, "coord", err)
	} else {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindBookmarkReset, Comp: "coord", Count: n})
	}
	send(program, ui.BookmarksReset{Count: n, Err: err})
}

func (c *Coordinator) capture(ctx context.Context, program Sender, pageURL string) {
	msg := ui.ImagesCaptured{Page: pageURL}
	defer func() { send(program, msg) }()

	on, err := c.store.RecordingEnabled()
	if err != nil {
		msg.Err = err
		return
	}
	if !on {
		msg.Err = ErrNotRecording
		return
	}
	if c.pages == nil {
		msg.Err = errors.New("page capture is not available")
		return
	}

	urls, err := c.pages.PageImages(ctx, pageURL)
	if err != nil {
		msg.Err = err
		return
	}
	msg.Found = len(urls)
	msg.Added, msg.Err = c.store.AddBookmarks(urls, c.now())
	if msg.Err == nil {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCapture, Comp: "coord", URL: pageURL, Count: msg.Added})
	}
}

func (c *Coordinator) createShare(ctx context.Context, program Sender, req share.Request) {
	if c.sharer == nil {
		send(program, ui.ShareCreated{Err: errors.New("sharing is not configured")})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, shareTimeout)
	defer cancel()

	start := time.Now()
	link, err := c.sharer.Create(ctx, req)
	if err != nil {
		c.events.Error(otel.KindShareError, "coord", err)
	} else {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShareComplete, Comp: "coord", URL: link, Count: len(req.URLs), Dur: time.Since(start)})
	}
	send(program, ui.ShareCreated{URL: link, Err: err})
}

// send delivers msg when a program is attached.
func send(program Sender, msg tea.Msg) {
	if program != nil {
		program.Send(msg)
	}
}
