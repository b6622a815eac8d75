package sequence

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want URI
	}{
		{"numbered file", "https://example.com/photos/pic010.jpg", URI{"https://example.com/photos/pic", "010", ".jpg"}},
		{"last run wins", "https://x.test/a/2019/set3_img42b.png", URI{"https://x.test/a/2019/set3_img", "42", "b.png"}},
		{"numeric filename", "https://x.test/gallery/0042", URI{"https://x.test/gallery/", "0042", ""}},
		{"query stripped", "https://x.test/p/img7.jpg?w=100#top", URI{"https://x.test/p/img", "7", ".jpg"}},
		{"fragment stripped", "https://x.test/p/img7.jpg#frag?x=1", URI{"https://x.test/p/img", "7", ".jpg"}},
		{"no digits", "https://x.test/p/cover.jpg", URI{"https://x.test/p/", "", "cover.jpg"}},
		{"digits without extension", "https://x.test/p/img12", URI{"https://x.test/p/", "", "img12"}},
		{"digits only in extension", "https://x.test/p/image.mp4", URI{"https://x.test/p/", "", "image.mp4"}},
		{"no slash", "img5.jpg", URI{"", "", "img5.jpg"}},
		{"multi dot", "https://x.test/p/photo.v2.12.tar.gz", URI{"https://x.test/p/photo.v2.", "12", ".tar.gz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMultiDotUsesLastExtension(t *testing.T) {
	// "photo.v2.12.tar" is the name, "gz" the extension; the last run is 12.
	u := Parse("https://x.test/p/photo.v2.12.tar.gz")
	if u.Digits != "12" {
		t.Fatalf("Digits = %q, want 12", u.Digits)
	}
	if u.String() != "https://x.test/p/photo.v2.12.tar.gz" {
		t.Errorf("round trip = %q", u.String())
	}
}

func TestMutateUpIncrementsByOne(t *testing.T) {
	urls := []string{
		"https://example.com/a/img1.jpg",
		"https://example.com/a/img9.jpg",
		"https://example.com/a/img099.jpg",
		"https://example.com/a/frame_0001_hd.webp",
		"https://example.com/a/999.png",
	}
	want := []string{"2", "10", "100", "0002", "1000"}

	for i, raw := range urls {
		next, ok := Mutate(Parse(raw), Up, false)
		if !ok {
			t.Fatalf("Mutate(%q) failed", raw)
		}
		if got := Parse(next).Digits; got != want[i] {
			t.Errorf("Mutate(%q) digits = %q, want %q", raw, got, want[i])
		}
	}
}

func TestMutateDownAtZeroFails(t *testing.T) {
	for _, raw := range []string{"https://x.test/0.jpg", "https://x.test/img000.jpg", "https://x.test/00"} {
		if got, ok := Mutate(Parse(raw), Down, false); ok {
			t.Errorf("Mutate(%q, Down) = %q, want failure", raw, got)
		}
		if got, ok := Mutate(Parse(raw), Down, true); ok {
			t.Errorf("Mutate(%q, Down, forcePad) = %q, want failure", raw, got)
		}
	}
}

func TestMutateWithoutSequenceFails(t *testing.T) {
	if _, ok := Mutate(Parse("https://x.test/cover.jpg"), Up, false); ok {
		t.Error("expected failure for URL without digits")
	}
	if _, ok := Step(URI{}, Down, true); ok {
		t.Error("expected failure for zero URI")
	}
}

func TestPaddingPreserved(t *testing.T) {
	u := Parse("https://x.test/img007.jpg")
	if u.Digits != "007" {
		t.Fatalf("Digits = %q, want 007", u.Digits)
	}

	u, ok := Step(u, Up, false)
	if !ok || u.Digits != "008" {
		t.Fatalf("first step = %q, %v", u.Digits, ok)
	}
	u, ok = Step(u, Up, false)
	if !ok || u.Digits != "009" {
		t.Fatalf("second step = %q, %v", u.Digits, ok)
	}
	if len(u.Digits) != 3 {
		t.Errorf("width changed to %d", len(u.Digits))
	}
	if u.String() != "https://x.test/img009.jpg" {
		t.Errorf("String() = %q", u.String())
	}
}

func TestDecadeBoundary(t *testing.T) {
	u := Parse("https://x.test/gallery/10.jpg")
	if u.Digits != "10" {
		t.Fatalf("Digits = %q, want 10", u.Digits)
	}

	plain, ok := Mutate(u, Down, false)
	if !ok || !strings.HasSuffix(plain, "/9.jpg") {
		t.Errorf("plain = %q, want .../9.jpg", plain)
	}
	padded, ok := Mutate(u, Down, true)
	if !ok || !strings.HasSuffix(padded, "/09.jpg") {
		t.Errorf("padded = %q, want .../09.jpg", padded)
	}
	if !NeedsPaddedAlternative(u) {
		t.Error("10 should ask for the padded alternative")
	}
}

func TestNeedsPaddedAlternative(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"10", true},
		{"20", true},
		{"100", true},
		{"7", false},
		{"11", false},
		{"010", false}, // already padded
		{"1000", true},
	}
	for _, tt := range tests {
		u := URI{Prefix: "p/", Digits: tt.digits, Suffix: ".jpg"}
		if got := NeedsPaddedAlternative(u); got != tt.want {
			t.Errorf("NeedsPaddedAlternative(%q) = %v, want %v", tt.digits, got, tt.want)
		}
	}
}

func TestStepDoesNotAlias(t *testing.T) {
	orig := Parse("https://x.test/img5.jpg")
	next, _ := Step(orig, Up, false)
	if orig.Digits != "5" {
		t.Errorf("original mutated to %q", orig.Digits)
	}
	if next.Digits != "6" {
		t.Errorf("next = %q", next.Digits)
	}
}

func TestMutateLongRunDoesNotOverflow(t *testing.T) {
	u := URI{Prefix: "https://x.test/", Digits: "99999999999999999999999", Suffix: ".jpg"}
	next, ok := Step(u, Up, false)
	if !ok {
		t.Fatal("step failed")
	}
	if next.Digits != "100000000000000000000000" {
		t.Errorf("Digits = %q", next.Digits)
	}
	back, ok := Step(next, Down, false)
	if !ok || back.Digits != u.Digits {
		t.Errorf("back = %q, %v", back.Digits, ok)
	}
}
