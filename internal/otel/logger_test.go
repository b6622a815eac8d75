package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// journal emits events through a fresh Logger and returns the decoded lines.
func journal(t *testing.T, setup func(*Logger), events ...Event) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	l := NewLogger(&buf)
	if setup != nil {
		setup(l)
	}
	for _, e := range events {
		l.Emit(e)
	}
	l.Close()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEmitFields(t *testing.T) {
	lines := journal(t, nil, Event{
		Level:   LevelDebug,
		Kind:    KindCrawlFound,
		Comp:    "crawl",
		CrawlID: "abc",
		URL:     "https://x.test/1.jpg",
		Dir:     "down",
		Count:   3,
	})
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	want := map[string]any{
		"level":    "debug",
		"kind":     "crawl.found",
		"comp":     "crawl",
		"crawl_id": "abc",
		"url":      "https://x.test/1.jpg",
		"dir":      "down",
		"count":    float64(3),
	}
	for k, v := range want {
		if lines[0][k] != v {
			t.Errorf("%s = %v, want %v", k, lines[0][k], v)
		}
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Emit(Event{Kind: KindShutdown})
	l.Close()
	after := time.Now()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for _, line := range lines {
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Time.Before(before) || ev.Time.After(after) {
			t.Errorf("time %v outside [%v, %v]", ev.Time, before, after)
		}
		if ev.SessionID != l.SessionID() || ev.SessionID == "" {
			t.Errorf("session_id = %q, want %q", ev.SessionID, l.SessionID())
		}
	}
}

func TestDurationAndOmitempty(t *testing.T) {
	lines := journal(t, nil,
		Event{Kind: KindCrawlComplete, Dur: 1500 * time.Millisecond},
		Event{Kind: KindStartup},
	)
	if lines[0]["dur_ms"] != float64(1500) {
		t.Errorf("dur_ms = %v, want 1500", lines[0]["dur_ms"])
	}
	for _, field := range []string{"dur_ms", "count", "url", "dir", "err", "msg", "extra", "crawl_id"} {
		if _, ok := lines[1][field]; ok {
			t.Errorf("field %q should be omitted", field)
		}
	}
}

func TestLevelHelpers(t *testing.T) {
	lines := journal(t, nil)
	if len(lines) != 0 {
		t.Fatalf("empty journal produced %d lines", len(lines))
	}

	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Info(KindStartup, "main", "starting")
	l.Warn(KindShareError, "share", "slow")
	l.Error(KindError, "coord", errors.New("disk full"))
	l.Error(KindError, "coord", nil)
	l.Close()

	tests := []struct {
		level, kind, comp, err string
	}{
		{"info", "sys.startup", "main", ""},
		{"warn", "share.error", "share", ""},
		{"error", "sys.error", "coord", "disk full"},
		{"error", "sys.error", "coord", ""},
	}
	dec := json.NewDecoder(&buf)
	for i, tt := range tests {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if string(ev.Level) != tt.level || string(ev.Kind) != tt.kind || ev.Comp != tt.comp || ev.Err != tt.err {
			t.Errorf("line %d = %+v, want %+v", i, ev, tt)
		}
	}
}

func TestFileLevelKeepsRing(t *testing.T) {
	ring := NewRingBuffer(8)
	lines := journal(t, func(l *Logger) {
		l.SetRingBuffer(ring)
		l.SetFileLevel(LevelInfo)
	},
		Event{Level: LevelDebug, Kind: KindCrawlMiss},
		Event{Level: LevelInfo, Kind: KindCrawlComplete},
		Event{Kind: KindKeyPress},
	)

	if len(lines) != 1 || lines[0]["kind"] != "crawl.complete" {
		t.Errorf("file lines = %v, want only crawl.complete", lines)
	}
	if ring.Len() != 3 {
		t.Errorf("ring holds %d events, want 3", ring.Len())
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindCrawlFound, Comp: "test"})
		}()
	}
	wg.Wait()
	l.Close()

	if n := strings.Count(buf.String(), "\n"); n != 100 {
		t.Errorf("got %d lines, want 100", n)
	}
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	l.Close()

	l.Emit(Event{Kind: KindShutdown})
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d after emit on closed logger, want 1", l.Dropped())
	}
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Errorf("got %d lines, want 1", n)
	}
}

func TestDropWhenQueueFull(t *testing.T) {
	w := &stallWriter{entered: make(chan struct{}), release: make(chan struct{})}
	l := NewLogger(w)

	l.Emit(Event{Kind: KindCrawlStart})
	<-w.entered // writer is now stuck on the first line

	for i := 0; i < queueSize+10; i++ {
		l.Emit(Event{Kind: KindCrawlMiss})
	}
	if l.Dropped() == 0 {
		t.Error("expected drops with a full queue")
	}

	close(w.release)
	l.Close()
}

// stallWriter blocks its first Write until release is closed.
type stallWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *stallWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.entered)
		<-w.release
	})
	return len(p), nil
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindCrawlStart, "coord", "x")
	l.Error(KindShareError, "coord", errors.New("boom"))
	l.SetRingBuffer(NewRingBuffer(1))
	l.SetFileLevel(LevelError)
	l.Close()
	if l.Dropped() != 0 || l.SessionID() != "" {
		t.Error("nil logger should report zero values")
	}
}

func TestNullLoggerFeedsRing(t *testing.T) {
	ring := NewRingBuffer(4)
	l := NewNullLogger()
	l.SetRingBuffer(ring)
	l.Emit(Event{Kind: KindBookmarkAdd})
	l.Close()

	if ring.Len() != 1 {
		t.Errorf("ring holds %d events, want 1", ring.Len())
	}
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", EventsFile)

	for _, kind := range []EventKind{KindStartup, KindShutdown} {
		l, err := OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile() error = %v", err)
		}
		l.Emit(Event{Kind: kind})
		l.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("got %d lines across opens, want 2", n)
	}
}
