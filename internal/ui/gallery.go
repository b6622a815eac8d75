package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// RenderGallery renders the image list with the cursor kept in view.
// groupOf maps a URL to its duplicate group; URLs without a group get no
// badge.
func RenderGallery(images []string, cursor int, source string, groupOf map[string]int, width, height int) string {
	if len(images) == 0 {
		return HelpStyle.Render("No images yet.")
	}
	if height < 1 {
		height = 1
	}

	offset := calcScrollOffset(cursor, len(images), height)
	end := offset + height
	if end > len(images) {
		end = len(images)
	}

	indexWidth := len(fmt.Sprint(len(images)))

	var b strings.Builder
	for i := offset; i < end; i++ {
		g, grouped := groupOf[images[i]]
		b.WriteString(renderImageLine(i, indexWidth, images[i], i == cursor, images[i] == source, g, grouped, width))
		b.WriteString("\n")
	}
	return b.String()
}

// calcScrollOffset returns the first visible row so that cursor is on
// screen.
func calcScrollOffset(cursor, total, height int) int {
	if total <= height || cursor < height {
		return 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	return cursor - height + 1
}

func renderImageLine(i, indexWidth int, url string, selected, isSource bool, group int, grouped bool, width int) string {
	index := IndexColumn.Render(fmt.Sprintf("%*d", indexWidth, i+1))

	badge := ""
	if grouped {
		badge = groupBadge(group)
	}

	// index + space + badge + item padding
	avail := width - lipgloss.Width(index) - 1 - lipgloss.Width(badge) - 2
	if avail < 20 {
		avail = 20
	}
	text := shortURL(url, avail)

	var style lipgloss.Style
	switch {
	case selected:
		style = SelectedItem
	case isSource:
		style = SourceItem
	default:
		style = NormalItem
	}
	return index + " " + badge + style.Render(text)
}

// groupBadge renders the badge for duplicate group g (0-based).
func groupBadge(g int) string {
	c := groupPalette[g%len(groupPalette)]
	return GroupBadge.Foreground(c).Render(fmt.Sprintf("dup %d", g+1))
}

// shortURL drops the scheme and, when still too long, elides the middle
// so the file name stays visible.
func shortURL(u string, max int) string {
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if utf8.RuneCountInString(u) <= max || max < 5 {
		return u
	}
	runes := []rune(u)
	tail := max * 2 / 3
	head := max - tail - 1
	return string(runes[:head]) + "…" + string(runes[len(runes)-tail:])
}

// RenderStatusBar renders the bottom bar with position info and key hints.
func RenderStatusBar(left string, hints []key.Binding, width int) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		help := h.Help()
		parts = append(parts, StatusBarKey.Render(help.Key)+StatusBarText.Render(":"+help.Desc))
	}
	keyHints := strings.Join(parts, " ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(keyHints) - 2
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}
