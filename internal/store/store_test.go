package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// BookmarkStore is used ONLY for testing consumers of the store.
// It defines the subset of Store methods the coordinator needs.
type BookmarkStore interface {
	AddBookmark(url string, at time.Time) (bool, error)
	BookmarkURLs() ([]string, error)
	RemoveBookmark(url string) error
	ResetBookmarks() (int, error)
}

// Verify Store implements BookmarkStore at compile time.
var _ BookmarkStore = (*Store)(nil)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen(t *testing.T) {
	st := openTest(t)

	for _, table := range []string{"bookmarks", "settings"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("%s table not created: %v", table, err)
		}
	}
}

func TestAddBookmarkUnique(t *testing.T) {
	st := openTest(t)
	now := time.Now()

	added, err := st.AddBookmark("https://x.test/1.jpg", now)
	if err != nil || !added {
		t.Fatalf("first add = %v, %v", added, err)
	}
	added, err = st.AddBookmark("https://x.test/1.jpg", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second add error: %v", err)
	}
	if added {
		t.Error("duplicate URL reported as added")
	}

	n, err := st.CountBookmarks()
	if err != nil || n != 1 {
		t.Errorf("CountBookmarks = %d, %v, want 1", n, err)
	}

	if _, err := st.AddBookmark("", now); err == nil {
		t.Error("empty URL accepted")
	}
}

func TestBookmarksInCaptureOrder(t *testing.T) {
	st := openTest(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	urls := []string{"https://x.test/c.jpg", "https://x.test/a.jpg", "https://x.test/b.jpg"}
	for i, u := range urls {
		if _, err := st.AddBookmark(u, now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.Bookmarks()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, b := range got {
		if b.URL != urls[i] {
			t.Errorf("bookmark %d = %s, want %s", i, b.URL, urls[i])
		}
	}
	if !got[0].CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %v, want %v", got[0].CapturedAt, now)
	}
}

func TestAddBookmarks(t *testing.T) {
	st := openTest(t)
	st.AddBookmark("https://x.test/1.jpg", time.Now())

	n, err := st.AddBookmarks([]string{"https://x.test/1.jpg", "https://x.test/2.jpg", "", "https://x.test/3.jpg"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("new = %d, want 2", n)
	}
}

func TestRemoveBookmark(t *testing.T) {
	st := openTest(t)
	now := time.Now()
	st.AddBookmark("https://x.test/1.jpg", now)
	st.AddBookmark("https://x.test/2.jpg", now)
	st.AddBookmark("https://x.test/3.jpg", now)

	if err := st.RemoveBookmark("https://x.test/2.jpg"); err != nil {
		t.Fatalf("RemoveBookmark: %v", err)
	}
	if err := st.RemoveBookmark("https://x.test/2.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove = %v, want ErrNotFound", err)
	}

	url, err := st.RemoveBookmarkAt(1)
	if err != nil || url != "https://x.test/3.jpg" {
		t.Errorf("RemoveBookmarkAt(1) = %q, %v", url, err)
	}
	if _, err := st.RemoveBookmarkAt(5); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveBookmarkAt(5) = %v, want ErrNotFound", err)
	}

	urls, _ := st.BookmarkURLs()
	if len(urls) != 1 || urls[0] != "https://x.test/1.jpg" {
		t.Errorf("remaining = %v", urls)
	}
}

func TestResetBookmarks(t *testing.T) {
	st := openTest(t)
	for i := 0; i < 4; i++ {
		st.AddBookmark(fmt.Sprintf("https://x.test/%d.jpg", i), time.Now())
	}

	n, err := st.ResetBookmarks()
	if err != nil || n != 4 {
		t.Errorf("ResetBookmarks = %d, %v, want 4", n, err)
	}
	if c, _ := st.CountBookmarks(); c != 0 {
		t.Errorf("count after reset = %d", c)
	}
}

func TestSettings(t *testing.T) {
	st := openTest(t)

	on, err := st.RecordingEnabled()
	if err != nil || on {
		t.Fatalf("default recording = %v, %v", on, err)
	}
	if err := st.SetRecordingEnabled(true); err != nil {
		t.Fatal(err)
	}
	if on, _ := st.RecordingEnabled(); !on {
		t.Error("recording not enabled")
	}
	on, err = st.ToggleRecording()
	if err != nil || on {
		t.Errorf("ToggleRecording = %v, %v, want false", on, err)
	}

	if done, _ := st.HasOnboarded(); done {
		t.Error("onboarded by default")
	}
	if err := st.MarkOnboarded(); err != nil {
		t.Fatal(err)
	}
	if done, _ := st.HasOnboarded(); !done {
		t.Error("MarkOnboarded not persisted")
	}
}

func TestConcurrentAdds(t *testing.T) {
	st := openTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// half the goroutines race on the same URL
			st.AddBookmark(fmt.Sprintf("https://x.test/%d.jpg", i%10), time.Now())
		}(i)
	}
	wg.Wait()

	n, err := st.CountBookmarks()
	if err != nil || n != 10 {
		t.Errorf("CountBookmarks = %d, %v, want 10", n, err)
	}
}
