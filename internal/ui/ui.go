package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hwi0-02/Stonetify-sub000/internal/formatter"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/player"
)

const (
	renderInterval = 200 * time.Millisecond
	seekStepMS     = 5000
	volumeStep     = 10
	commandTimeout = 10 * time.Second
)

// Model represents the now-playing TUI state. All playback state lives in
// the session; the model only renders it and dispatches intents.
type Model struct {
	session *player.Session

	queue      list.Model
	queueLen   int
	progress   progress.Model
	help       help.Model
	keys       keyMap
	width      int
	height     int
	volume     int
	err        error
	quitting   bool
}

// NewModel builds the now-playing view on top of session.
func NewModel(session *player.Session) Model {
	queue, index := session.Queue()

	delegate := list.NewDefaultDelegate()
	queueList := list.New(queueItems(queue, index), delegate, 0, 14)
	queueList.Title = "Queue"
	queueList.SetShowHelp(false)
	queueList.SetShowStatusBar(false)
	queueList.SetFilteringEnabled(false)

	return Model{
		session:  session,
		queue:    queueList,
		queueLen: len(queue),
		progress: progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		keys:     newKeyMap(),
		volume:   50,
	}
}

// Init implements [tea.Model].
func (m Model) Init() tea.Cmd {
	return renderTick()
}

func renderTick() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// command dispatches a session operation off the render loop.
func command(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return opDoneMsg{err: fn(ctx)}
	}
}

// Update implements [tea.Model].
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 8
		m.queue.SetSize(msg.Width, max(msg.Height-12, 4))
		return m, nil

	case tickMsg:
		m.syncQueue()
		return m, renderTick()

	case opDoneMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		if m.session != nil {
			if err := m.session.SaveSnapshot(); err != nil {
				m.err = err
			}
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.playPause):
		if m.session.IsPlaying() {
			return m, command(m.session.Pause)
		}
		return m, command(m.session.Play)

	case key.Matches(msg, m.keys.next):
		return m, command(m.session.NextTrack)

	case key.Matches(msg, m.keys.previous):
		return m, command(m.session.PreviousTrack)

	case key.Matches(msg, m.keys.seekBack):
		position, _ := m.session.Position()
		target := position - seekStepMS
		return m, command(func(ctx context.Context) error {
			return m.session.CompleteSeek(ctx, target)
		})

	case key.Matches(msg, m.keys.seekAhead):
		position, _ := m.session.Position()
		target := position + seekStepMS
		return m, command(func(ctx context.Context) error {
			return m.session.CompleteSeek(ctx, target)
		})

	case key.Matches(msg, m.keys.shuffle):
		m.session.ToggleShuffle()
		m.syncQueue()
		return m, nil

	case key.Matches(msg, m.keys.repeat):
		m.session.CycleRepeat()
		return m, nil

	case key.Matches(msg, m.keys.volumeUp):
		m.volume = min(m.volume+volumeStep, 100)
		volume := m.volume
		return m, command(func(ctx context.Context) error {
			return m.session.SetVolume(ctx, volume)
		})

	case key.Matches(msg, m.keys.volumeDown):
		m.volume = max(m.volume-volumeStep, 0)
		volume := m.volume
		return m, command(func(ctx context.Context) error {
			return m.session.SetVolume(ctx, volume)
		})
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

// syncQueue refreshes the queue list from the session.
func (m *Model) syncQueue() {
	queue, index := m.session.Queue()
	m.queue.SetItems(queueItems(queue, index))
	m.queueLen = len(queue)
}

// View implements [tea.Model].
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Stonetify"))
	b.WriteString("\n")

	track := m.session.CurrentTrack()
	if track == nil {
		b.WriteString(styles.help.Render("Nothing queued. Load a track from the CLI to get started."))
		b.WriteString("\n")
	} else {
		line := track.Name
		if len(track.Artists) > 0 {
			line = fmt.Sprintf("%s - %s", strings.Join(track.Artists, ", "), track.Name)
		}
		if m.session.IsPlaying() {
			b.WriteString(styles.ok.Render("▶ " + line))
		} else {
			b.WriteString(styles.warn.Render("⏸ " + line))
		}
		b.WriteString("\n\n")

		position, duration := m.session.Position()
		percent := 0.0
		if duration > 0 {
			percent = float64(position) / float64(duration)
		}
		b.WriteString(m.progress.ViewAs(percent))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s / %s", formatter.FormatDurationMS(position), formatter.FormatDurationMS(duration)))

		flags := make([]string, 0, 3)
		if m.session.IsShuffle() {
			flags = append(flags, "shuffle")
		}
		if mode := m.session.Repeat(); mode != models.RepeatOff {
			flags = append(flags, "repeat "+string(mode))
		}
		flags = append(flags, fmt.Sprintf("vol %d%%", m.volume))
		b.WriteString(styles.help.Render("  [" + strings.Join(flags, ", ") + "]"))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.queue.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	return b.String()
}
