package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	left    key.Binding
	right   key.Binding
	release key.Binding
	remove  key.Binding
	keep    key.Binding
	retry   key.Binding
	login   key.Binding
	logout  key.Binding
	history key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "drag left")),
		right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "drag right")),
		release: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "release")),
		remove:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "remove")),
		keep:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "keep")),
		retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		login:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "log in")),
		logout:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
		history: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "history")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.remove, k.keep, k.release, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.left, k.right, k.release},
		{k.remove, k.keep, k.retry},
		{k.history, k.logout, k.quit},
	}
}
