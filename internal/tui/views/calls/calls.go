// Package calls renders the scrolling log of host calls.
package calls

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/streamvr/server/internal/host"
	"github.com/streamvr/server/internal/tui/theme"
)

const maxEntries = 200

// Model holds the call log.
type Model struct {
	Entries []host.Call
	Offset  int // scroll offset from the bottom
}

func New() Model {
	return Model{}
}

// Add appends calls, caps the buffer and keeps the current scroll position
// anchored unless already at the bottom.
func (m *Model) Add(calls ...host.Call) {
	m.Entries = append(m.Entries, calls...)
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	if m.Offset > 0 {
		m.Offset = min(m.Offset+len(calls), max(len(m.Entries)-1, 0))
	}
}

func (m *Model) Clear() {
	m.Entries = nil
	m.Offset = 0
}

func (m *Model) ScrollUp(n int) {
	m.Offset = min(m.Offset+n, max(len(m.Entries)-1, 0))
}

func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// View renders the last height entries above the scroll offset.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	visible := max(height, 3)

	title := theme.StyleHeader.Render(" HOST CALLS ")
	if len(m.Entries) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, theme.StyleDimmed.Render("  No host calls yet."))
	}

	end := len(m.Entries) - m.Offset
	start := max(end-visible, 0)

	lines := []string{title}
	for _, c := range m.Entries[start:end] {
		ts := theme.StyleDimmed.Render(c.At.Format("15:04:05.000"))
		kind := lipgloss.NewStyle().Foreground(theme.CallColor(string(c.Kind))).Width(24).Render(string(c.Kind))
		detail := Describe(c)
		if len(detail) > innerW-38 && innerW > 41 {
			detail = detail[:innerW-41] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ts, kind, detail))
	}
	if m.Offset > 0 {
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset)))
	}
	return strings.Join(lines, "\n")
}

// Describe summarises a call's payload in one line.
func Describe(c host.Call) string {
	switch {
	case c.Battery != nil:
		plug := ""
		if c.Battery.IsPlugged {
			plug = " plugged"
		}
		return fmt.Sprintf("device %d %.0f%%%s", c.Battery.DeviceID, c.Battery.Gauge*100, plug)
	case c.Area != nil:
		return fmt.Sprintf("%.2f x %.2f m", c.Area.Width, c.Area.Height)
	case c.Views != nil:
		return fmt.Sprintf("ipd %.1f mm", c.Views.IPD*1000)
	case c.Property != nil:
		return fmt.Sprintf("device %d %s=%v", c.Property.DeviceID, c.Property.Name, c.Property.Value)
	case c.Button != nil:
		return fmt.Sprintf("device %d button %d", c.Button.DeviceID, c.Button.ButtonID)
	}
	return ""
}
