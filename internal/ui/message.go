package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg drives the render clock; the session's own position clock runs
// independently, this only repaints it.
type tickMsg time.Time

// opDoneMsg reports the outcome of an asynchronous transport command.
type opDoneMsg struct {
	err error
}

var (
	_ tea.Msg = tickMsg{}
	_ tea.Msg = opDoneMsg{}
)
