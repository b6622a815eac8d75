package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/showmore/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
const debugPanelChrome = 4

// debugOverlay renders crawl and duplicate stats plus the recent events.
// Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Session Stats"))
	lines = append(lines, fmt.Sprintf("  Crawls:     %d started, %d complete, %d stopped",
		stats[otel.KindCrawlStart], stats[otel.KindCrawlComplete], stats[otel.KindCrawlStop]))
	lines = append(lines, fmt.Sprintf("  Probes:     %d found, %d missed, %d exhausted",
		stats[otel.KindCrawlFound], stats[otel.KindCrawlMiss], stats[otel.KindCrawlExhausted]))
	lines = append(lines, fmt.Sprintf("  Dupes:      %d runs, %d errors",
		stats[otel.KindDedupComplete], stats[otel.KindDedupError]))
	lines = append(lines, fmt.Sprintf("  Bookmarks:  %d added, %d removed",
		stats[otel.KindBookmarkAdd], stats[otel.KindBookmarkRemove]))
	lines = append(lines, fmt.Sprintf("  Shares:     %d complete, %d errors",
		stats[otel.KindShareComplete], stats[otel.KindShareError]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-18s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Dir != "" {
			line += " " + e.Dir
		}
		if e.URL != "" {
			line += "  " + shortURL(e.URL, 40)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 30)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 90
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Negative durations from clock skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("?") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
