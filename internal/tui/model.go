// Package tui implements C10: the poll-driven terminal view. It reads the
// tracker's public projections directly (Agents(), Subscribe()) rather than
// going through the RPC surface, and keeps its own bounded event window
// independent of the tracker's internal sets, per spec.md §4.10.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuai/tuaid/internal/eventbus"
	"github.com/tuai/tuaid/pkg/model"
)

const (
	pollInterval   = 500 * time.Millisecond
	eventWindowCap = 2000
)

// View discriminates the four panes spec.md §4.10 describes.
type View int

const (
	ViewAgents View = iota
	ViewEvents
	ViewNetwork
	ViewAlerts
)

func (v View) String() string {
	switch v {
	case ViewAgents:
		return "Agents"
	case ViewEvents:
		return "Events"
	case ViewNetwork:
		return "Network"
	case ViewAlerts:
		return "Alerts"
	default:
		return "?"
	}
}

// Tracker is the narrow read surface the TUI needs.
type Tracker interface {
	Agents() []model.ProcessRecord
	Subscribe(ctx context.Context) *eventbus.Handle
}

var severityOrder = []model.Severity{model.SeverityInfo, model.SeverityWarning, model.SeverityAlert, model.SeverityCritical}

// Model is the bubbletea Elm-architecture model driving the terminal view.
type Model struct {
	tracker Tracker

	ctx    context.Context
	cancel context.CancelFunc
	handle *eventbus.Handle

	view     View
	cursor   int
	help     bool
	search   bool
	query    string
	sevIndex int // index into severityOrder; events below this threshold are hidden

	agents []model.ProcessRecord
	events []model.Event // bounded ring, newest last
	width  int
	height int
}

func New(tracker Tracker) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	return &Model{
		tracker: tracker,
		ctx:     ctx,
		cancel:  cancel,
		view:    ViewAgents,
	}
}

func (m *Model) Init() tea.Cmd {
	m.handle = m.tracker.Subscribe(m.ctx)
	return tea.Batch(tickCmd(), pollEventCmd(m.handle))
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type eventMsg struct {
	ev      model.Event
	skipped uint64
	ok      bool
}

func pollEventCmd(handle *eventbus.Handle) tea.Cmd {
	return func() tea.Msg {
		ev, skipped, ok := handle.Next()
		return eventMsg{ev: ev, skipped: skipped, ok: ok}
	}
}

func (m *Model) pushEvent(ev model.Event) {
	m.events = append(m.events, ev)
	if len(m.events) > eventWindowCap {
		m.events = m.events[len(m.events)-eventWindowCap:]
	}
}

func (m *Model) filteredEvents() []model.Event {
	threshold := severityOrder[m.sevIndex]
	out := make([]model.Event, 0, len(m.events))
	for _, ev := range m.events {
		if severityRank(ev.Severity) < severityRank(threshold) {
			continue
		}
		if m.query != "" && !strings.Contains(strings.ToLower(eventSearchText(ev)), strings.ToLower(m.query)) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func severityRank(s model.Severity) int {
	for i, v := range severityOrder {
		if v == s {
			return i
		}
	}
	return 0
}

func eventSearchText(ev model.Event) string {
	return fmt.Sprintf("%s %s %s %d", ev.Kind, ev.DisplayName, ev.AgentLabel, ev.PID)
}
