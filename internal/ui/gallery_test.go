package ui

import (
	"strings"
	"testing"
)

func TestCalcScrollOffset(t *testing.T) {
	tests := []struct {
		name                  string
		cursor, total, height int
		want                  int
	}{
		{"fits", 3, 5, 10, 0},
		{"cursor on screen", 4, 50, 10, 0},
		{"cursor at last row", 9, 50, 10, 0},
		{"cursor past screen", 10, 50, 10, 1},
		{"cursor at end", 49, 50, 10, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calcScrollOffset(tt.cursor, tt.total, tt.height); got != tt.want {
				t.Errorf("calcScrollOffset(%d, %d, %d) = %d, want %d", tt.cursor, tt.total, tt.height, got, tt.want)
			}
		})
	}
}

func TestShortURL(t *testing.T) {
	if got := shortURL("https://x.test/a.jpg", 40); got != "x.test/a.jpg" {
		t.Errorf("shortURL = %q", got)
	}
	long := "https://images.example.com/galleries/2024/summer/holiday/photo_000123.jpg"
	got := shortURL(long, 30)
	if n := len([]rune(got)); n != 30 {
		t.Errorf("len = %d, want 30: %q", n, got)
	}
	if !strings.HasSuffix(got, "photo_000123.jpg") {
		t.Errorf("file name not kept: %q", got)
	}
}

func TestRenderGallery(t *testing.T) {
	if got := RenderGallery(nil, 0, "", nil, 80, 10); !strings.Contains(got, "No images") {
		t.Errorf("empty gallery = %q", got)
	}

	images := []string{"https://x.test/1.jpg", "https://x.test/2.jpg", "https://x.test/3.jpg"}
	out := RenderGallery(images, 1, images[0], map[string]int{images[2]: 0}, 80, 10)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("rendered %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[2], "dup 1") {
		t.Errorf("grouped image has no badge: %q", lines[2])
	}
	if strings.Contains(lines[0], "dup") {
		t.Errorf("ungrouped image has a badge: %q", lines[0])
	}

	scrolled := RenderGallery(images, 2, "", nil, 80, 2)
	if strings.Contains(scrolled, "x.test/1.jpg") || !strings.Contains(scrolled, "x.test/3.jpg") {
		t.Errorf("cursor row not in view:\n%s", scrolled)
	}
}
