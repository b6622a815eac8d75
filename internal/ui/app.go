package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/showmore/internal/dedup"
	"github.com/abelbrown/showmore/internal/otel"
)

// Mode selects what the gallery shows.
type Mode int

const (
	// ModeSequence shows the results of a crawl.
	ModeSequence Mode = iota
	// ModeBookmarks shows the recorded list.
	ModeBookmarks
)

func (m Mode) String() string {
	if m == ModeBookmarks {
		return "bookmarks"
	}
	return "sequence"
}

// ObsConfig wires observability into the UI. Both fields are optional.
type ObsConfig struct {
	Ring   *otel.RingBuffer
	Events *otel.Logger
}

// AppConfig configures the gallery. Command functions may be nil, which
// disables the matching key.
type AppConfig struct {
	Mode      Mode
	Source    string // crawl start URL in sequence mode
	Onboarded bool
	Recording bool

	StartCrawl       func(url string) tea.Cmd
	LoadMore         func() tea.Cmd
	StopCrawl        func() tea.Cmd
	DetectDuplicates func(urls []string) tea.Cmd
	LoadBookmarks    func() tea.Cmd
	AddBookmark      func(url string) tea.Cmd
	RemoveBookmark   func(url string) tea.Cmd
	Share            func(urls []string) tea.Cmd
	ToggleRecording  func() tea.Cmd
	MarkOnboarded    func() tea.Cmd
	Open             func(url string) tea.Cmd

	Obs ObsConfig
}

// App is the root Bubble Tea model.
// App does not hold the store or the crawler. It talks to them through
// the command functions and learns results from messages.
type App struct {
	cfg AppConfig

	mode    Mode
	images  []string
	cursor  int
	session string
	source  string

	crawling      bool
	canLoadMore   bool
	exhaustedUp   bool
	exhaustedDown bool
	status        string

	groups      []dedup.Group
	groupOf     map[string]int
	filterGroup int // -1 when no filter is active
	dedupBusy   bool
	dedupDone   int
	dedupTotal  int

	recording bool
	sharing   bool
	showHint  bool

	notice      string
	noticeError bool

	spinner      spinner.Model
	debugVisible bool
	width        int
	height       int
	ready        bool
}

// NewApp creates a sequence-mode App crawling from source.
func NewApp(source string) App {
	return NewAppWithConfig(AppConfig{Source: source})
}

// NewAppWithConfig creates an App from cfg.
func NewAppWithConfig(cfg AppConfig) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusBarKey

	return App{
		cfg:         cfg,
		mode:        cfg.Mode,
		source:      cfg.Source,
		recording:   cfg.Recording,
		showHint:    !cfg.Onboarded,
		filterGroup: -1,
		groupOf:     make(map[string]int),
		spinner:     s,
	}
}

// Init starts the crawl or loads bookmarks, depending on the mode.
func (a App) Init() tea.Cmd {
	var cmds []tea.Cmd
	switch a.mode {
	case ModeSequence:
		if a.cfg.StartCrawl != nil && a.source != "" {
			cmds = append(cmds, a.cfg.StartCrawl(a.source), a.spinner.Tick)
		}
	case ModeBookmarks:
		if a.cfg.LoadBookmarks != nil {
			cmds = append(cmds, a.cfg.LoadBookmarks())
		}
	}
	if a.showHint && a.cfg.MarkOnboarded != nil {
		cmds = append(cmds, a.cfg.MarkOnboarded())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.cfg.Obs.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case CrawlStarted:
		a.session = msg.Session
		a.source = msg.Source
		a.images = nil
		a.cursor = 0
		a.crawling = true
		a.canLoadMore = false
		a.exhaustedUp, a.exhaustedDown = false, false
		a.status = "running"
		a.clearGroups()
		return a, nil

	case ImageFound:
		if msg.Session != a.session {
			return a, nil
		}
		// groups describe the old result set
		a.clearGroups()
		if msg.Prepend {
			a.images = append([]string{msg.URL}, a.images...)
			// keep the selection on the same image
			if len(a.images) > 1 {
				a.cursor++
			}
		} else {
			a.images = append(a.images, msg.URL)
		}
		return a, nil

	case DirectionExhausted:
		if msg.Session != a.session {
			return a, nil
		}
		if msg.Direction == "up" {
			a.exhaustedUp = true
		} else {
			a.exhaustedDown = true
		}
		return a, nil

	case CrawlDone:
		if msg.Session != a.session {
			return a, nil
		}
		if !slices.Equal(a.images, msg.Results) {
			a.clearGroups()
		}
		a.setImages(msg.Results)
		a.crawling = false
		a.canLoadMore = msg.CanLoadMore
		a.status = msg.Status
		switch {
		case msg.Err != nil && !errors.Is(msg.Err, context.Canceled):
			a.setError(msg.Err)
		case msg.Status == "stopped":
			a.setNotice(fmt.Sprintf("stopped with %d images", len(a.images)))
		default:
			a.setNotice(fmt.Sprintf("found %d images", len(a.images)))
		}
		return a, nil

	case DedupProgress:
		a.dedupDone, a.dedupTotal = msg.Done, msg.Total
		return a, nil

	case DuplicatesDetected:
		a.dedupBusy = false
		if !slices.Equal(msg.URLs, a.images) {
			a.setNotice("list changed during duplicate detection, press d again")
			return a, nil
		}
		if msg.Err != nil {
			a.setError(fmt.Errorf("duplicate detection: %w", msg.Err))
			return a, nil
		}
		a.clearGroups()
		a.groups = msg.Groups
		dupes := 0
		for i, g := range msg.Groups {
			for _, m := range g.Members {
				a.groupOf[m] = i
			}
			dupes += len(g.Members) - 1
		}
		switch {
		case dupes == 0:
			a.setNotice("no duplicates found")
		default:
			a.setNotice(fmt.Sprintf("%d duplicates in %d groups", dupes, len(msg.Groups)))
		}
		if msg.Failed > 0 {
			a.notice += fmt.Sprintf(" (%d unreadable)", msg.Failed)
		}
		return a, nil

	case BookmarksLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		if a.mode == ModeBookmarks {
			a.clearGroups()
			a.setImages(msg.URLs)
		}
		return a, nil

	case BookmarkAdded:
		switch {
		case msg.Err != nil:
			a.setError(msg.Err)
		case !msg.Added:
			a.setNotice("already exists")
		default:
			a.setNotice("bookmarked")
			if a.mode == ModeBookmarks {
				a.clearGroups()
				a.images = append(a.images, msg.URL)
			}
		}
		return a, nil

	case BookmarkRemoved:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.removeImage(msg.URL)
		a.setNotice("removed")
		return a, nil

	case BookmarksReset:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		if a.mode == ModeBookmarks {
			a.clearGroups()
			a.setImages(nil)
		}
		a.setNotice(fmt.Sprintf("removed %d bookmarks", msg.Count))
		return a, nil

	case ImagesCaptured:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.setNotice(fmt.Sprintf("captured %d of %d images", msg.Added, msg.Found))
		if a.mode == ModeBookmarks && msg.Added > 0 && a.cfg.LoadBookmarks != nil {
			return a, a.cfg.LoadBookmarks()
		}
		return a, nil

	case RecordingChanged:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.recording = msg.On
		if msg.On {
			a.setNotice("recording on")
		} else {
			a.setNotice("recording off")
		}
		return a, nil

	case ShareCreated:
		a.sharing = false
		if msg.Err != nil {
			a.setError(fmt.Errorf("share: %w", msg.Err))
			return a, nil
		}
		a.setNotice("shared: " + msg.URL)
		return a, nil

	case Notice:
		a.notice, a.noticeError = msg.Text, msg.Error
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key dismisses the onboarding hint and the last notice.
	a.showHint = false
	a.notice, a.noticeError = "", false
	a.cfg.Obs.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: msg.String()})

	visible := a.visible()

	switch {
	case key.Matches(msg, keys.Quit):
		if a.crawling && a.cfg.StopCrawl != nil {
			return a, tea.Sequence(a.cfg.StopCrawl(), tea.Quit)
		}
		return a, tea.Quit

	case key.Matches(msg, keys.Debug):
		a.debugVisible = !a.debugVisible
		return a, nil

	case key.Matches(msg, keys.Down):
		if a.cursor < len(visible)-1 {
			a.cursor++
		}
		return a, nil

	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case key.Matches(msg, keys.Top):
		a.cursor = 0
		return a, nil

	case key.Matches(msg, keys.Bottom):
		if len(visible) > 0 {
			a.cursor = len(visible) - 1
		}
		return a, nil

	case key.Matches(msg, keys.Open):
		if url, ok := a.selected(); ok && a.cfg.Open != nil {
			return a, a.cfg.Open(url)
		}
		return a, nil

	case key.Matches(msg, keys.Stop):
		if a.crawling && a.cfg.StopCrawl != nil {
			a.setNotice("stopping…")
			return a, a.cfg.StopCrawl()
		}
		return a, nil

	case key.Matches(msg, keys.More):
		if a.mode != ModeSequence || a.crawling || a.dedupBusy || a.cfg.LoadMore == nil {
			return a, nil
		}
		if !a.canLoadMore {
			a.setNotice("no more images in this sequence")
			return a, nil
		}
		a.crawling = true
		a.status = "running"
		return a, tea.Batch(a.cfg.LoadMore(), a.spinner.Tick)

	case key.Matches(msg, keys.Dupes):
		if a.dedupBusy || a.crawling || a.cfg.DetectDuplicates == nil {
			return a, nil
		}
		if len(a.images) < 2 {
			a.setNotice("need at least two images")
			return a, nil
		}
		a.filterGroup = -1
		a.dedupBusy = true
		a.dedupDone, a.dedupTotal = 0, len(a.images)
		urls := make([]string, len(a.images))
		copy(urls, a.images)
		return a, tea.Batch(a.cfg.DetectDuplicates(urls), a.spinner.Tick)

	case key.Matches(msg, keys.Filter):
		if a.filterGroup >= 0 {
			a.clearFilter()
			return a, nil
		}
		url, ok := a.selected()
		if !ok {
			return a, nil
		}
		g, ok := a.groupOf[url]
		if !ok {
			a.setNotice("image has no duplicates")
			return a, nil
		}
		a.filterGroup = g
		a.cursor = 0
		return a, nil

	case key.Matches(msg, keys.Clear):
		a.clearFilter()
		return a, nil

	case key.Matches(msg, keys.Bookmark):
		if url, ok := a.selected(); ok && a.cfg.AddBookmark != nil {
			return a, a.cfg.AddBookmark(url)
		}
		return a, nil

	case key.Matches(msg, keys.Remove):
		url, ok := a.selected()
		if !ok {
			return a, nil
		}
		if a.mode == ModeBookmarks {
			if a.cfg.RemoveBookmark != nil {
				return a, a.cfg.RemoveBookmark(url)
			}
			return a, nil
		}
		// In sequence mode removal only hides the image.
		a.removeImage(url)
		return a, nil

	case key.Matches(msg, keys.Share):
		if a.sharing || a.cfg.Share == nil || len(visible) == 0 {
			return a, nil
		}
		a.sharing = true
		a.setNotice(fmt.Sprintf("sharing %d images…", len(visible)))
		urls := make([]string, len(visible))
		copy(urls, visible)
		return a, tea.Batch(a.cfg.Share(urls), a.spinner.Tick)

	case key.Matches(msg, keys.Record):
		if a.cfg.ToggleRecording != nil {
			return a, a.cfg.ToggleRecording()
		}
		return a, nil
	}

	return a, nil
}

// visible returns the images currently listed, honouring the group filter.
func (a App) visible() []string {
	if a.filterGroup < 0 || a.filterGroup >= len(a.groups) {
		return a.images
	}
	members := make(map[string]bool, len(a.groups[a.filterGroup].Members))
	for _, m := range a.groups[a.filterGroup].Members {
		members[m] = true
	}
	var out []string
	for _, u := range a.images {
		if members[u] {
			out = append(out, u)
		}
	}
	return out
}

func (a App) selected() (string, bool) {
	v := a.visible()
	if a.cursor < 0 || a.cursor >= len(v) {
		return "", false
	}
	return v[a.cursor], true
}

func (a App) busy() bool {
	return a.crawling || a.dedupBusy || a.sharing
}

func (a *App) setImages(urls []string) {
	a.images = urls
	if a.cursor >= len(a.images) {
		a.cursor = len(a.images) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) removeImage(url string) {
	out := make([]string, 0, len(a.images))
	for _, u := range a.images {
		if u != url {
			out = append(out, u)
		}
	}
	a.images = out
	if g, ok := a.groupOf[url]; ok {
		delete(a.groupOf, url)
		if a.filterGroup == g && len(a.visible()) == 0 {
			a.filterGroup = -1
		}
	}
	if n := len(a.visible()); a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
}

// clearGroups drops the groups, keeping the selection on the same image.
func (a *App) clearGroups() {
	a.clearFilter()
	a.groups = nil
	a.groupOf = make(map[string]int)
	a.filterGroup = -1
}

func (a *App) clearFilter() {
	if a.filterGroup < 0 {
		return
	}
	url, ok := a.selected()
	a.filterGroup = -1
	a.cursor = 0
	if ok {
		for i, u := range a.images {
			if u == url {
				a.cursor = i
				break
			}
		}
	}
}

func (a *App) setNotice(s string) {
	a.notice, a.noticeError = s, false
}

func (a *App) setError(err error) {
	a.notice, a.noticeError = err.Error(), true
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debugVisible {
		return debugOverlay(a.cfg.Obs.Ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	header := a.renderHeader()

	var extra []string
	if a.showHint {
		extra = append(extra, HintStyle.Render("j/k move · enter open · b bookmark · d find duplicates · p share · ? debug"))
	}
	if a.filterGroup >= 0 {
		extra = append(extra, FilterBar.Width(a.width).Render(fmt.Sprintf("showing duplicate group %d · f/esc to clear", a.filterGroup+1)))
	}
	if a.notice != "" {
		if a.noticeError {
			extra = append(extra, ErrorStyle.Render("Error: "+a.notice))
		} else {
			extra = append(extra, NoticeStyle.Render(a.notice))
		}
	}

	used := 2 // header and status bar
	for _, e := range extra {
		used += strings.Count(e, "\n") + 1
	}

	gallery := RenderGallery(a.visible(), a.cursor, a.source, a.groupOf, a.width, a.height-used)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(gallery)
	for _, e := range extra {
		b.WriteString(e)
		b.WriteString("\n")
	}
	b.WriteString(RenderStatusBar(a.statusText(), keys.hints(a.mode, a.canLoadMore, a.crawling), a.width))
	return b.String()
}

func (a App) renderHeader() string {
	title := Header.Render("showmore · " + a.mode.String())
	if a.mode == ModeSequence && a.source != "" {
		return title + HeaderSource.Render(shortURL(a.source, max(a.width-30, 20)))
	}
	if a.mode == ModeBookmarks && a.recording {
		return title + HeaderSource.Render("● recording")
	}
	return title
}

func (a App) statusText() string {
	v := a.visible()
	pos := fmt.Sprintf("%d/%d", min(a.cursor+1, len(v)), len(v))
	switch {
	case a.crawling:
		return a.spinner.View() + " crawling " + pos
	case a.dedupBusy:
		return a.spinner.View() + fmt.Sprintf(" hashing %d/%d", a.dedupDone, a.dedupTotal)
	case a.sharing:
		return a.spinner.View() + " sharing"
	}
	if a.mode == ModeSequence && a.status != "" {
		s := pos + " · " + a.status
		if a.exhaustedUp && a.exhaustedDown {
			s += " · end of sequence"
		}
		return s
	}
	return pos
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Images returns the listed images (for testing).
func (a App) Images() []string {
	return a.visible()
}
