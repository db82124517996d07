package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines key bindings used across the TUI.
type KeyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Quit     key.Binding
	Refresh  key.Binding

	// Overview filter
	FilterSignal key.Binding

	// Detail navigation
	Next key.Binding
	Prev key.Binding
}

// DefaultKeyMap provides the default key bindings for the TUI.
var DefaultKeyMap = KeyMap{
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
	ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "run pass")),

	FilterSignal: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle signal")),

	Next: key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "next asset")),
	Prev: key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "prev asset")),
}
