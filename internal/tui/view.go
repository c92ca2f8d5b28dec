package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tuai/tuaid/pkg/model"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	styleTab   = lipgloss.NewStyle().Padding(0, 2)
	styleTabOn = lipgloss.NewStyle().Padding(0, 2).Bold(true).Underline(true).Foreground(lipgloss.Color("86"))
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleCur   = lipgloss.NewStyle().Background(lipgloss.Color("235"))
	styleCrit  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleAlert = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

func (m *Model) View() string {
	if m.help {
		return m.helpView()
	}

	var b strings.Builder
	b.WriteString(m.tabBar())
	b.WriteString("\n\n")

	switch m.view {
	case ViewAgents:
		b.WriteString(m.agentsView())
	case ViewEvents, ViewNetwork, ViewAlerts:
		b.WriteString(m.eventListView())
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m *Model) tabBar() string {
	labels := []View{ViewAgents, ViewEvents, ViewNetwork, ViewAlerts}
	var parts []string
	for _, v := range labels {
		label := fmt.Sprintf("[%d] %s", v+1, v)
		if v == m.view {
			parts = append(parts, styleTabOn.Render(label))
		} else {
			parts = append(parts, styleTab.Render(label))
		}
	}
	return styleTitle.Render("tuaid") + "  " + strings.Join(parts, "")
}

func (m *Model) agentsView() string {
	if len(m.agents) == 0 {
		return styleDim.Render("no tracked agent processes yet")
	}
	var b strings.Builder
	b.WriteString(styleDim.Render(fmt.Sprintf("%-8s %-10s %-20s %s", "PID", "PPID", "AGENT", "NAME")))
	b.WriteString("\n")
	for i, p := range m.agents {
		line := fmt.Sprintf("%-8d %-10d %-20s %s", p.PID, p.PPID, orDash(p.AgentLabel), p.Name)
		if i == m.cursor {
			line = styleCur.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) eventListView() string {
	events := m.visibleEvents()
	if len(events) == 0 {
		return styleDim.Render("no events match the current filter")
	}
	var b strings.Builder
	for i, ev := range events {
		line := formatEventLine(ev)
		if i == m.cursor {
			line = styleCur.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func formatEventLine(ev model.Event) string {
	ts := ev.Timestamp.Format("15:04:05.000")
	detail := eventDetail(ev)
	line := fmt.Sprintf("[%s] %-17s PID:%-8d %-18s %s", ts, ev.Kind, ev.PID, ev.DisplayName, detail)
	return severityStyle(ev.Severity).Render(line)
}

func eventDetail(ev model.Event) string {
	switch {
	case ev.Connection != nil:
		c := ev.Connection
		if c.HasRemote {
			return fmt.Sprintf("%s -> %s:%d [%s]", c.Protocol, c.RemoteAddr, c.RemotePort, c.Endpoint)
		}
		return fmt.Sprintf("%s listen %s:%d", c.Protocol, c.LocalAddr, c.LocalPort)
	case ev.FileOp != nil:
		return fmt.Sprintf("%s %s", ev.FileOp.Operation, ev.FileOp.Path)
	case ev.ChildCount > 0:
		return fmt.Sprintf("children=%d", ev.ChildCount)
	default:
		return ""
	}
}

func severityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityCritical:
		return styleCrit
	case model.SeverityAlert:
		return styleAlert
	case model.SeverityWarning:
		return styleWarn
	default:
		return styleInfo
	}
}

func (m *Model) statusBar() string {
	filter := fmt.Sprintf("min-severity:%s", severityOrder[m.sevIndex])
	if m.search {
		return styleDim.Render(fmt.Sprintf("search: %s_", m.query))
	}
	search := ""
	if m.query != "" {
		search = fmt.Sprintf(" search:%q", m.query)
	}
	return styleDim.Render(fmt.Sprintf("%s%s  agents:%d events:%d  [?] help  [q] quit", filter, search, len(m.agents), len(m.events)))
}

func (m *Model) helpView() string {
	lines := []string{
		styleTitle.Render("tuaid — keybindings"),
		"",
		"1-4       switch view (Agents / Events / Network / Alerts)",
		"j/k       move cursor down/up",
		"g/G       jump to top/bottom",
		"/         search (Enter/Esc to finish)",
		"c         clear search",
		"f         cycle minimum severity filter",
		"?         toggle this help",
		"q, Esc    quit (Esc closes help first)",
		"",
		styleDim.Render("press any key to return"),
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
