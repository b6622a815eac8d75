package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Open     key.Binding
	Stop     key.Binding
	More     key.Binding
	Dupes    key.Binding
	Filter   key.Binding
	Clear    key.Binding
	Bookmark key.Binding
	Remove   key.Binding
	Share    key.Binding
	Record   key.Binding
	Debug    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
	Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
	Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Open:     key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open")),
	Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	More:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "more")),
	Dupes:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dupes")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "group")),
	Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	Bookmark: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
	Remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
	Share:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "share")),
	Record:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
	Debug:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "debug")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// hints returns the status bar bindings for mode.
func (k keyMap) hints(mode Mode, canLoadMore, crawling bool) []key.Binding {
	out := []key.Binding{k.Down}
	if mode == ModeSequence {
		switch {
		case crawling:
			out = append(out, k.Stop)
		case canLoadMore:
			out = append(out, k.More)
		}
		out = append(out, k.Bookmark)
	} else {
		out = append(out, k.Remove, k.Record)
	}
	return append(out, k.Dupes, k.Filter, k.Share, k.Debug, k.Quit)
}
