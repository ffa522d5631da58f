package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the transport controls.
type keyMap struct {
	playPause  key.Binding
	next       key.Binding
	previous   key.Binding
	seekBack   key.Binding
	seekAhead  key.Binding
	shuffle    key.Binding
	repeat     key.Binding
	volumeUp   key.Binding
	volumeDown key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		playPause:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		seekBack:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "seek -5s")),
		seekAhead:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "seek +5s")),
		shuffle:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		volumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.next, k.previous, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.next, k.previous},
		{k.seekBack, k.seekAhead, k.shuffle, k.repeat},
		{k.volumeUp, k.volumeDown, k.quit},
	}
}
