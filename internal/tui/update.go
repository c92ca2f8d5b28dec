package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuai/tuaid/pkg/model"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.agents = m.tracker.Agents()
		return m, tickCmd()

	case eventMsg:
		if !msg.ok {
			return m, nil
		}
		if msg.skipped == 0 {
			m.pushEvent(msg.ev)
		}
		return m, pollEventCmd(m.handle)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.search = false
			return m, nil
		case tea.KeyBackspace:
			if len(m.query) > 0 {
				m.query = m.query[:len(m.query)-1]
			}
			return m, nil
		case tea.KeyRunes:
			m.query += string(msg.Runes)
			return m, nil
		}
		return m, nil
	}

	if m.help {
		m.help = false
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.cancel()
		if m.handle != nil {
			m.handle.Close()
		}
		return m, tea.Quit
	case "ctrl+c":
		m.cancel()
		if m.handle != nil {
			m.handle.Close()
		}
		return m, tea.Quit
	case "?":
		m.help = !m.help
		return m, nil
	case "1":
		m.view, m.cursor = ViewAgents, 0
	case "2":
		m.view, m.cursor = ViewEvents, 0
	case "3":
		m.view, m.cursor = ViewNetwork, 0
	case "4":
		m.view, m.cursor = ViewAlerts, 0
	case "j", "down":
		m.cursor++
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g":
		m.cursor = 0
	case "G":
		m.cursor = m.maxCursor()
	case "/":
		m.search = true
	case "c":
		m.query = ""
	case "f":
		m.sevIndex = (m.sevIndex + 1) % len(severityOrder)
	}
	return m, nil
}

func (m *Model) maxCursor() int {
	switch m.view {
	case ViewAgents:
		if len(m.agents) == 0 {
			return 0
		}
		return len(m.agents) - 1
	default:
		n := len(m.visibleEvents())
		if n == 0 {
			return 0
		}
		return n - 1
	}
}

// visibleEvents returns the events relevant to the current view: Events
// shows everything past the severity filter, Network only connection
// events, Alerts only ProtectedAccess.
func (m *Model) visibleEvents() []model.Event {
	filtered := m.filteredEvents()
	switch m.view {
	case ViewNetwork:
		out := make([]model.Event, 0, len(filtered))
		for _, ev := range filtered {
			if ev.Kind == model.EventNetwork {
				out = append(out, ev)
			}
		}
		return out
	case ViewAlerts:
		out := make([]model.Event, 0, len(filtered))
		for _, ev := range filtered {
			if ev.Kind == model.EventProtectedAccess {
				out = append(out, ev)
			}
		}
		return out
	default:
		return filtered
	}
}
