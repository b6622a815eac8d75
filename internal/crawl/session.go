// Package crawl discovers the neighbours of a numbered image URL.
//
// A Session walks down (predecessors) and then up (successors) from a
// source URL, probing each synthesized candidate. Results are kept in
// ascending sequence order with the source at the boundary between the
// two directions. Probing within a direction is strictly sequential.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/showmore/internal/logging"
	"github.com/abelbrown/showmore/internal/sequence"
)

const (
	// DefaultBudget is the number of images one pass tries to find.
	DefaultBudget = 100

	// DefaultMissTolerance is how many consecutive misses a direction
	// survives. The next miss exhausts it.
	DefaultMissTolerance = 2

	DefaultMinDelay = 200 * time.Millisecond
	DefaultMaxDelay = 500 * time.Millisecond
)

var (
	// ErrBusy is returned when a pass is already running.
	ErrBusy = errors.New("crawl: session is running")

	// ErrNotStarted is returned by LoadMore before Run.
	ErrNotStarted = errors.New("crawl: session not started")

	// ErrAlreadyStarted is returned by a second Run.
	ErrAlreadyStarted = errors.New("crawl: session already started")
)

// Prober answers whether a URL serves an image.
type Prober interface {
	Exists(ctx context.Context, url string) bool
}

// Direction selects which neighbours a session looks for.
type Direction string

const (
	Both Direction = "both"
	Prev Direction = "prev"
	Next Direction = "next"
)

// ParseDirection accepts both, prev and next.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Both, Prev, Next:
		return Direction(s), nil
	case "":
		return Both, nil
	}
	return "", fmt.Errorf("crawl: unknown direction %q (want both, prev or next)", s)
}

// Status is the lifecycle state of a session.
type Status int

const (
	Idle Status = iota
	Running
	Completed
	Stopped
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Config tunes a session. Use DefaultConfig for production values;
// zero delays disable the pause between probes.
type Config struct {
	Budget        int
	MissTolerance int
	MinDelay      time.Duration
	MaxDelay      time.Duration
}

// DefaultConfig returns the production crawl settings.
func DefaultConfig() Config {
	return Config{
		Budget:        DefaultBudget,
		MissTolerance: DefaultMissTolerance,
		MinDelay:      DefaultMinDelay,
		MaxDelay:      DefaultMaxDelay,
	}
}

func (c *Config) defaults() {
	if c.Budget <= 0 {
		c.Budget = DefaultBudget
	}
	if c.MissTolerance <= 0 {
		c.MissTolerance = DefaultMissTolerance
	}
	if c.MinDelay < 0 {
		c.MinDelay = 0
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	ID            string
	Source        string
	Direction     Direction
	Status        Status
	Results       []string
	ExhaustedUp   bool
	ExhaustedDown bool
	CanLoadMore   bool
}

// Session is one crawl from a source URL.
// Thread-safety: Stop, Results, Snapshot and CanLoadMore may be called
// from any goroutine while Run or LoadMore is in progress.
type Session struct {
	id      string
	source  string
	dir     Direction
	cfg     Config
	prober  Prober
	observe Observer

	mu            sync.Mutex
	status        Status
	results       []string
	hasSequence   bool
	cursorUp      sequence.URI
	cursorDown    sequence.URI
	exhaustedUp   bool
	exhaustedDown bool
	stopped       bool
	stopCh        chan struct{}
}

// NewSession prepares a crawl. observe may be nil.
func NewSession(source string, dir Direction, p Prober, cfg Config, observe Observer) *Session {
	cfg.defaults()
	if dir == "" {
		dir = Both
	}
	return &Session{
		id:      uuid.NewString(),
		source:  source,
		dir:     dir,
		cfg:     cfg,
		prober:  p,
		observe: observe,
		stopCh:  make(chan struct{}),
	}
}

// ID identifies the session in logs and events.
func (s *Session) ID() string { return s.id }

// Source returns the URL the crawl started from.
func (s *Session) Source() string { return s.source }

// Run performs the initial pass. It returns when both directions are done,
// the session is stopped, or ctx is cancelled. Run on a session stopped
// before it started does nothing.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	if s.status != Idle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.status = Running
	s.results = []string{s.source}

	parsed := sequence.Parse(s.source)
	if !parsed.HasSequence() {
		s.exhaustedUp, s.exhaustedDown = true, true
		s.status = Completed
		s.mu.Unlock()
		logging.Debug("crawl source has no sequence", "session", s.id, "url", s.source)
		s.emit(Event{Kind: EventFound, URL: s.source, Direction: sequence.Up})
		s.emit(Event{Kind: EventDone})
		return nil
	}
	s.hasSequence = true
	s.cursorUp = parsed
	s.cursorDown = parsed
	s.mu.Unlock()

	s.emit(Event{Kind: EventFound, URL: s.source, Direction: sequence.Up})
	logging.Info("crawl started", "session", s.id, "url", s.source, "direction", s.dir, "budget", s.cfg.Budget)

	s.pass(ctx, s.cfg.Budget)
	return s.finish(ctx)
}

// LoadMore runs another pass from the persisted cursors. It is a no-op
// after Stop or once every direction is exhausted.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return nil
	case s.status == Idle:
		s.mu.Unlock()
		return ErrNotStarted
	case s.status == Running:
		s.mu.Unlock()
		return ErrBusy
	case !s.canLoadMoreLocked():
		s.mu.Unlock()
		return nil
	}
	s.status = Running
	s.mu.Unlock()

	logging.Info("crawl load more", "session", s.id, "budget", s.cfg.Budget)
	s.pass(ctx, s.cfg.Budget)
	return s.finish(ctx)
}

// Stop cancels the session cooperatively. Pending delays are cut short
// and nothing is added to the results afterwards.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.status = Stopped
	close(s.stopCh)
}

// Results returns a copy of the discovered URLs in ascending order.
func (s *Session) Results() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.results))
	copy(out, s.results)
	return out
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CanLoadMore reports whether LoadMore would do any work.
func (s *Session) CanLoadMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status != Running && s.canLoadMoreLocked()
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]string, len(s.results))
	copy(results, s.results)
	return Snapshot{
		ID:            s.id,
		Source:        s.source,
		Direction:     s.dir,
		Status:        s.status,
		Results:       results,
		ExhaustedUp:   s.exhaustedUp,
		ExhaustedDown: s.exhaustedDown,
		CanLoadMore:   s.status != Running && s.canLoadMoreLocked(),
	}
}

func (s *Session) canLoadMoreLocked() bool {
	return !s.stopped && s.hasSequence && s.status != Idle && (!s.exhaustedUp || !s.exhaustedDown)
}

// pass spends one budget. In both mode the down search runs first and any
// budget it leaves unused carries over to the up search; nothing carries
// the other way. A single-direction request that finds nothing searches
// the opposite direction with the full budget instead.
func (s *Session) pass(ctx context.Context, budget int) {
	switch s.dir {
	case Both:
		down := budget / 2
		up := budget - down
		found := s.search(ctx, sequence.Down, down)
		if found < down {
			up += down - found
			logging.Debug("crawl reallocating budget", "session", s.id, "unused", down-found, "up", up)
		}
		s.search(ctx, sequence.Up, up)
	case Prev:
		if s.search(ctx, sequence.Down, budget) == 0 {
			s.search(ctx, sequence.Up, budget)
		}
	case Next:
		if s.search(ctx, sequence.Up, budget) == 0 {
			s.search(ctx, sequence.Down, budget)
		}
	}
}

// search walks one direction until budget images are found, the direction
// is exhausted, or the session stops. It returns the number found.
func (s *Session) search(ctx context.Context, d sequence.Direction, budget int) int {
	found, misses := 0, 0
	for found < budget {
		s.mu.Lock()
		if s.stopped || s.exhaustedLocked(d) {
			s.mu.Unlock()
			break
		}
		cur := s.cursorLocked(d)
		s.mu.Unlock()

		candidate, ok := sequence.Step(cur, d, false)
		if !ok {
			s.markExhausted(d, "no predecessor")
			break
		}

		if !s.pause(ctx) {
			break
		}

		exists := s.prober.Exists(ctx, candidate.String())
		if !exists && d == sequence.Down && sequence.NeedsPaddedAlternative(cur) {
			if alt, ok := sequence.Step(cur, d, true); ok && alt != candidate {
				if s.prober.Exists(ctx, alt.String()) {
					candidate, exists = alt, true
				}
			}
		}
		if ctx.Err() != nil {
			break
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			break
		}
		s.setCursorLocked(d, candidate)
		if exists {
			url := candidate.String()
			if d == sequence.Down {
				s.results = append([]string{url}, s.results...)
			} else {
				s.results = append(s.results, url)
			}
			found++
			misses = 0
			s.mu.Unlock()
			s.emit(Event{Kind: EventFound, URL: url, Direction: d, Found: found, Budget: budget})
			continue
		}
		misses++
		s.mu.Unlock()

		s.emit(Event{Kind: EventMiss, URL: candidate.String(), Direction: d, Found: found, Budget: budget})
		if misses > s.cfg.MissTolerance {
			s.markExhausted(d, "miss tolerance exceeded")
			break
		}
	}
	return found
}

// pause sleeps a random delay between probes. It returns false when the
// session stopped or ctx ended during the wait.
func (s *Session) pause(ctx context.Context) bool {
	d := s.cfg.MinDelay
	if spread := s.cfg.MaxDelay - s.cfg.MinDelay; spread > 0 {
		d += rand.N(spread)
	}
	if d <= 0 {
		select {
		case <-s.stopCh:
			return false
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Session) finish(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.status = Stopped
	} else if ctx.Err() != nil {
		s.stopped = true
		s.status = Stopped
		close(s.stopCh)
	} else {
		s.status = Completed
	}
	status, n := s.status, len(s.results)
	s.mu.Unlock()

	logging.Info("crawl finished", "session", s.id, "status", status, "results", n)
	s.emit(Event{Kind: EventDone})
	return ctx.Err()
}

func (s *Session) markExhausted(d sequence.Direction, reason string) {
	s.mu.Lock()
	if d == sequence.Down {
		s.exhaustedDown = true
	} else {
		s.exhaustedUp = true
	}
	s.mu.Unlock()
	logging.Debug("crawl direction exhausted", "session", s.id, "direction", d, "reason", reason)
	s.emit(Event{Kind: EventExhausted, Direction: d})
}

func (s *Session) exhaustedLocked(d sequence.Direction) bool {
	if d == sequence.Down {
		return s.exhaustedDown
	}
	return s.exhaustedUp
}

func (s *Session) cursorLocked(d sequence.Direction) sequence.URI {
	if d == sequence.Down {
		return s.cursorDown
	}
	return s.cursorUp
}

func (s *Session) setCursorLocked(d sequence.Direction, u sequence.URI) {
	if d == sequence.Down {
		s.cursorDown = u
	} else {
		s.cursorUp = u
	}
}

func (s *Session) emit(e Event) {
	if s.observe == nil {
		return
	}
	e.Session = s.id
	s.observe(e)
}
