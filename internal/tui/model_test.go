package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuai/tuaid/internal/eventbus"
	"github.com/tuai/tuaid/pkg/model"
)

type stubTracker struct {
	agents []model.ProcessRecord
	bus    *eventbus.Hub
}

func (s *stubTracker) Agents() []model.ProcessRecord { return s.agents }
func (s *stubTracker) Subscribe(ctx context.Context) *eventbus.Handle {
	return s.bus.Subscribe(ctx)
}

func TestFilteredEventsAppliesSeverityThreshold(t *testing.T) {
	m := New(&stubTracker{bus: eventbus.NewHub()})
	m.pushEvent(model.Event{Kind: model.EventFileOpen, DisplayName: "a", Severity: model.SeverityInfo})
	m.pushEvent(model.Event{Kind: model.EventProtectedAccess, DisplayName: "b", Severity: model.SeverityCritical})

	m.sevIndex = severityRankOf(model.SeverityCritical)
	got := m.filteredEvents()
	assert.Len(t, got, 1)
	assert.Equal(t, model.EventProtectedAccess, got[0].Kind)
}

func TestFilteredEventsAppliesSearchQuery(t *testing.T) {
	m := New(&stubTracker{bus: eventbus.NewHub()})
	m.pushEvent(model.Event{Kind: model.EventProcessSpawn, DisplayName: "claude_code", AgentLabel: "claude_code"})
	m.pushEvent(model.Event{Kind: model.EventProcessSpawn, DisplayName: "cursor", AgentLabel: "cursor"})

	m.query = "claude"
	got := m.filteredEvents()
	assert.Len(t, got, 1)
	assert.Equal(t, "claude_code", got[0].DisplayName)
}

func TestPushEventTrimsToWindowCap(t *testing.T) {
	m := New(&stubTracker{bus: eventbus.NewHub()})
	for i := 0; i < eventWindowCap+10; i++ {
		m.pushEvent(model.Event{Kind: model.EventFileOpen})
	}
	assert.Len(t, m.events, eventWindowCap)
}

func TestVisibleEventsFiltersByView(t *testing.T) {
	m := New(&stubTracker{bus: eventbus.NewHub()})
	m.pushEvent(model.Event{Kind: model.EventNetwork, Connection: &model.ConnectionRecord{}})
	m.pushEvent(model.Event{Kind: model.EventProtectedAccess})
	m.pushEvent(model.Event{Kind: model.EventFileOpen})

	m.view = ViewNetwork
	assert.Len(t, m.visibleEvents(), 1)

	m.view = ViewAlerts
	assert.Len(t, m.visibleEvents(), 1)

	m.view = ViewEvents
	assert.Len(t, m.visibleEvents(), 3)
}

func severityRankOf(s model.Severity) int {
	return severityRank(s)
}
