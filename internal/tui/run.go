package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the terminal program and blocks until the user quits.
func Run(tracker Tracker) error {
	m := New(tracker)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
