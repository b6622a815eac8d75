package crawl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/showmore/internal/sequence"
)

// mockProber reports existence for a fixed set of URLs and records calls.
type mockProber struct {
	exists map[string]bool
	calls  atomic.Int32

	mu     sync.Mutex
	probed []string
}

func newMockProber(urls ...string) *mockProber {
	m := &mockProber{exists: make(map[string]bool)}
	for _, u := range urls {
		m.exists[u] = true
	}
	return m
}

func (m *mockProber) Exists(ctx context.Context, url string) bool {
	m.calls.Add(1)
	m.mu.Lock()
	m.probed = append(m.probed, url)
	m.mu.Unlock()
	return m.exists[url]
}

func picRange(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("https://example.com/photos/pic%03d.jpg", i))
	}
	return out
}

func pic(i int) string {
	return fmt.Sprintf("https://example.com/photos/pic%03d.jpg", i)
}

func testConfig(budget int) Config {
	return Config{Budget: budget, MissTolerance: DefaultMissTolerance}
}

func TestRunBothDirectionsWindow(t *testing.T) {
	p := newMockProber(picRange(1, 15)...)
	s := NewSession(pic(10), Both, p, testConfig(10), nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := s.Results()
	want := picRange(5, 15)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Results() =\n%v\nwant\n%v", got, want)
	}
	if !sort.StringsAreSorted(got) {
		t.Error("results not ascending")
	}
	if len(got) > 10+DefaultMissTolerance {
		t.Errorf("len = %d, exceeds budget plus tolerance", len(got))
	}
	for _, u := range got {
		if u == pic(0) || u == pic(16) {
			t.Errorf("unexpected %s in results", u)
		}
	}
	if s.Status() != Completed {
		t.Errorf("Status() = %v, want completed", s.Status())
	}
}

func TestRunReallocatesUnusedDownBudget(t *testing.T) {
	var urls []string
	urls = append(urls, picRange(7, 9)...)
	urls = append(urls, picRange(11, 40)...)
	p := newMockProber(urls...)

	var upFound int
	observe := func(e Event) {
		if e.Kind == EventFound && e.Direction == sequence.Up && e.Found > 0 {
			upFound = e.Found
			if e.Budget != 7 {
				t.Errorf("up budget = %d, want 7", e.Budget)
			}
		}
	}

	s := NewSession(pic(10), Both, p, testConfig(10), observe)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// down found 3 of 5, so up gets 5 + 2
	if upFound != 7 {
		t.Errorf("up found = %d, want 7", upFound)
	}
	got := s.Results()
	if got[0] != pic(7) || got[len(got)-1] != pic(17) {
		t.Errorf("results span %s..%s, want pic007..pic017", got[0], got[len(got)-1])
	}
	// 3 hits + 3 misses down, 7 hits up
	if n := p.calls.Load(); n > 10+DefaultMissTolerance+1 {
		t.Errorf("probes = %d, exceeds budget plus overshoot", n)
	}
	snap := s.Snapshot()
	if !snap.ExhaustedDown || snap.ExhaustedUp {
		t.Errorf("exhausted down=%v up=%v, want true/false", snap.ExhaustedDown, snap.ExhaustedUp)
	}
}

func TestNoUpToDownReallocation(t *testing.T) {
	// up runs dry immediately; down keeps its half only
	p := newMockProber(picRange(1, 9)...)
	s := NewSession(pic(10), Both, p, testConfig(6), nil)
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := s.Results()
	if got[0] != pic(7) {
		t.Errorf("first result = %s, want pic007 (down budget 3)", got[0])
	}
}

func TestStopPreventsFurtherResults(t *testing.T) {
	p := newMockProber(picRange(1, 99)...)

	var s *Session
	observe := func(e Event) {
		if e.Kind == EventFound && e.URL == pic(48) {
			s.Stop()
		}
	}
	s = NewSession(pic(50), Both, p, testConfig(20), observe)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := s.Results()
	want := []string{pic(48), pic(49), pic(50)}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Results() = %v, want %v", got, want)
	}
	if s.Status() != Stopped {
		t.Errorf("Status() = %v, want stopped", s.Status())
	}

	calls := p.calls.Load()
	if err := s.LoadMore(context.Background()); err != nil {
		t.Errorf("LoadMore() after stop error = %v", err)
	}
	if p.calls.Load() != calls {
		t.Error("LoadMore after stop probed again")
	}
	if len(s.Results()) != len(want) {
		t.Error("LoadMore after stop changed results")
	}
	if s.CanLoadMore() {
		t.Error("CanLoadMore() = true after stop")
	}
}

func TestStopInterruptsDelay(t *testing.T) {
	p := newMockProber(picRange(1, 99)...)
	cfg := Config{Budget: 10, MinDelay: 10 * time.Second, MaxDelay: 10 * time.Second}
	s := NewSession(pic(50), Both, p, cfg, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if p.calls.Load() != 0 {
		t.Errorf("probes = %d, want 0", p.calls.Load())
	}
}

func TestRunWithoutSequence(t *testing.T) {
	p := newMockProber()
	src := "https://example.com/photos/cover.jpg"
	s := NewSession(src, Both, p, testConfig(10), nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.Results(); len(got) != 1 || got[0] != src {
		t.Errorf("Results() = %v", got)
	}
	if s.Status() != Completed {
		t.Errorf("Status() = %v", s.Status())
	}
	if s.CanLoadMore() {
		t.Error("CanLoadMore() = true for a URL without sequence")
	}
	if p.calls.Load() != 0 {
		t.Errorf("probes = %d, want 0", p.calls.Load())
	}
}

func TestSingleDirectionFallback(t *testing.T) {
	t.Run("prev finds nothing", func(t *testing.T) {
		p := newMockProber(picRange(2, 5)...)
		s := NewSession(pic(1), Prev, p, testConfig(10), nil)
		if err := s.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		want := picRange(1, 5)
		if got := s.Results(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Results() = %v, want %v", got, want)
		}
	})

	t.Run("next finds nothing", func(t *testing.T) {
		p := newMockProber(picRange(1, 4)...)
		s := NewSession(pic(5), Next, p, testConfig(10), nil)
		if err := s.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		want := picRange(1, 5)
		if got := s.Results(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Results() = %v, want %v", got, want)
		}
	})

	t.Run("next finds some", func(t *testing.T) {
		p := newMockProber(picRange(1, 7)...)
		s := NewSession(pic(5), Next, p, testConfig(10), nil)
		if err := s.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		want := picRange(5, 7)
		if got := s.Results(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Results() = %v, want %v", got, want)
		}
	})
}

func TestLoadMoreResumesFromCursors(t *testing.T) {
	p := newMockProber(picRange(1, 50)...)
	s := NewSession(pic(20), Both, p, testConfig(10), nil)
	ctx := context.Background()

	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.CanLoadMore() {
		t.Fatal("CanLoadMore() = false after first pass")
	}
	if err := s.LoadMore(ctx); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}

	want := picRange(10, 30)
	if got := s.Results(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Results() = %v, want %v", got, want)
	}

	seen := make(map[string]bool)
	for _, u := range p.probed {
		if seen[u] {
			t.Errorf("%s probed twice", u)
		}
		seen[u] = true
	}
}

func TestLoadMoreLifecycleErrors(t *testing.T) {
	p := newMockProber(picRange(1, 3)...)
	s := NewSession(pic(2), Both, p, testConfig(4), nil)

	if err := s.LoadMore(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("LoadMore before Run = %v, want ErrNotStarted", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run = %v, want ErrAlreadyStarted", err)
	}
	// both directions ran dry, so LoadMore does nothing
	if s.CanLoadMore() {
		t.Error("CanLoadMore() = true with both directions exhausted")
	}
	calls := p.calls.Load()
	if err := s.LoadMore(context.Background()); err != nil {
		t.Errorf("LoadMore() = %v", err)
	}
	if p.calls.Load() != calls {
		t.Error("LoadMore probed with both directions exhausted")
	}
}

func TestDecadeBoundaryPrefersPaddedForm(t *testing.T) {
	base := "https://x.test/g/"
	t.Run("padded exists", func(t *testing.T) {
		p := newMockProber(base+"09.jpg", base+"08.jpg", base+"07.jpg")
		s := NewSession(base+"10.jpg", Prev, p, testConfig(3), nil)
		if err := s.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		want := []string{base + "07.jpg", base + "08.jpg", base + "09.jpg", base + "10.jpg"}
		if got := s.Results(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Results() = %v, want %v", got, want)
		}
	})

	t.Run("plain exists", func(t *testing.T) {
		p := newMockProber(base+"9.jpg", base+"8.jpg")
		s := NewSession(base+"10.jpg", Prev, p, testConfig(2), nil)
		if err := s.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		want := []string{base + "8.jpg", base + "9.jpg", base + "10.jpg"}
		if got := s.Results(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Results() = %v, want %v", got, want)
		}
		for _, u := range p.probed {
			if u == base+"09.jpg" {
				t.Error("padded form probed although plain form exists")
			}
		}
	})
}

func TestRunCancelledContext(t *testing.T) {
	p := newMockProber(picRange(1, 20)...)
	s := NewSession(pic(10), Both, p, testConfig(10), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if s.Status() != Stopped {
		t.Errorf("Status() = %v, want stopped", s.Status())
	}
	if p.calls.Load() != 0 {
		t.Errorf("probes = %d, want 0", p.calls.Load())
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": Both, "both": Both, "prev": Prev, "next": Next} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestRunAfterStopDoesNothing(t *testing.T) {
	p := newMockProber(picRange(1, 20)...)
	s := NewSession(pic(10), Both, p, testConfig(4), nil)
	s.Stop()

	if err := s.Run(context.Background()); err != nil {
		t.Errorf("Run() after Stop = %v", err)
	}
	if p.calls.Load() != 0 || len(s.Results()) != 0 {
		t.Errorf("stopped session probed %d times, results %v", p.calls.Load(), s.Results())
	}
}
