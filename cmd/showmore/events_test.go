package main

import (
	"strings"
	"testing"
	"time"
)

const journal = `{"t":"2026-01-02T10:00:00Z","level":"info","kind":"crawl.start","comp":"coord","crawl_id":"abcdef123456","url":"http://x.test/a/img05.jpg","dir":"both"}
not json
{"t":"2026-01-02T10:00:01Z","level":"debug","kind":"crawl.miss","comp":"coord","crawl_id":"abcdef123456","url":"http://x.test/a/img09.jpg","dir":"up"}
{"t":"2026-01-02T10:00:02Z","level":"error","kind":"share.error","comp":"coord","err":"share: server returned 500"}

{"t":"2026-01-02T10:00:03Z","level":"info","kind":"crawl.complete","comp":"coord","crawl_id":"abcdef123456","count":7,"dur_ms":1523.4}
{"t":"2026-01-02T10:00:04Z","level":"info","kind":"bookmark.add","comp":"cli","count":2}
`

func TestReadTailLines(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		filter eventFilter
		want   []string
	}{
		{"all", 10, eventFilter{}, []string{"crawl.start", "crawl.miss", "share.error", "crawl.complete", "bookmark.add"}},
		{"tail keeps newest", 2, eventFilter{}, []string{"crawl.complete", "bookmark.add"}},
		{"kind prefix", 10, eventFilter{kind: "crawl"}, []string{"crawl.start", "crawl.miss", "crawl.complete"}},
		{"min level", 10, eventFilter{level: "warn"}, []string{"share.error"}},
		{"component", 10, eventFilter{comp: "cli"}, []string{"bookmark.add"}},
		{"crawl id prefix", 10, eventFilter{crawl: "abcdef"}, []string{"crawl.start", "crawl.miss", "crawl.complete"}},
		{"zero", 0, eventFilter{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := readTailLines(strings.NewReader(journal), tt.n, tt.filter.match)
			var got []string
			for _, l := range lines {
				got = append(got, l.ev.Kind)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("kinds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatEvent(t *testing.T) {
	ev := eventRecord{
		Time:    time.Date(2026, 1, 2, 10, 0, 3, 0, time.UTC),
		Level:   "info",
		Kind:    "crawl.complete",
		Comp:    "coord",
		CrawlID: "abcdef123456",
		Count:   7,
		DurMs:   1523.4,
		Msg:     "completed",
	}
	got := formatEvent(ev)
	for _, want := range []string{"10:00:03.000", "INFO", "crawl.complete", "crawl=abcdef12", "n=7", "(1523ms)", ": completed"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatEvent() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "abcdef123456") {
		t.Errorf("crawl id not shortened: %q", got)
	}
}

func TestDurPrecision(t *testing.T) {
	tests := []struct {
		ms   float64
		want int
	}{
		{250, 0},
		{12.5, 1},
		{0.42, 2},
	}
	for _, tt := range tests {
		if got := durPrecision(tt.ms); got != tt.want {
			t.Errorf("durPrecision(%v) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}

func TestReadLinesSkipsBlanks(t *testing.T) {
	got := readLines(strings.NewReader("http://a/1.jpg\n\n  http://a/2.jpg  \n"))
	if len(got) != 2 || got[1] != "http://a/2.jpg" {
		t.Errorf("readLines() = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
