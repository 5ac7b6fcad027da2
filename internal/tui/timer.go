package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg struct {
	gen int
}

// timer schedules one-second ticks. Every start and stop bumps the
// generation, so a tick scheduled before a stop is dropped on arrival and
// at most one tick chain is alive at a time.
type timer struct {
	gen     int
	running bool
}

func (t *timer) start() tea.Cmd {
	if t.running {
		return nil
	}
	t.gen++
	t.running = true
	return tick(t.gen)
}

func (t *timer) stop() {
	if !t.running {
		return
	}
	t.gen++
	t.running = false
}

func (t *timer) accept(msg tickMsg) bool {
	return t.running && msg.gen == t.gen
}

func tick(gen int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}
