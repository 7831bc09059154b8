// Package app is the root Bubble Tea model of the monitor.
package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/streamvr/server/internal/devices"
	"github.com/streamvr/server/internal/host"
	"github.com/streamvr/server/internal/status"
	"github.com/streamvr/server/internal/tui/client"
	"github.com/streamvr/server/internal/tui/theme"
	"github.com/streamvr/server/internal/tui/views/calls"
)

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	help   help.Model
	width  int
	height int

	connected bool
	status    status.Snapshot
	calls     calls.Model
}

func New(ws *client.WSClient) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:     ws,
		ctx:    ctx,
		cancel: cancel,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		calls:  calls.New(),
	}
}

// Init starts the websocket connection.
func (m Model) Init() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.Listen(m.ctx)
}

func (m Model) read() tea.Cmd {
	if m.ws == nil {
		return nil
	}
	return m.ws.ReadLoop(m.ctx)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.WSConnectedMsg:
		m.connected = true
		return m, m.read()

	case client.WSDisconnectedMsg:
		m.connected = false
		if m.ws == nil {
			return m, nil
		}
		return m, m.ws.Listen(m.ctx)

	case client.WSSnapshotMsg:
		m.status = msg.Status
		return m, m.read()

	case client.WSDeltaMsg:
		// Deltas carry the store view only; keep the last process and
		// loop stats until the next full snapshot.
		proc, disp := m.status.Process, m.status.Dispatch
		m.status = msg.Status
		if m.status.Process == nil {
			m.status.Process = proc
		}
		if m.status.Dispatch == nil {
			m.status.Dispatch = disp
		}
		m.calls.Add(msg.Calls...)
		return m, m.read()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		if m.ws != nil {
			m.ws.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.calls.ScrollUp(1)

	case key.Matches(msg, m.keys.Down):
		m.calls.ScrollDown(1)

	case key.Matches(msg, m.keys.Clear):
		m.calls.Clear()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if !m.connected {
		box := lipgloss.NewStyle().
			Width(max(m.width-4, 20)).
			Padding(1, 2).
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(theme.ColorDanger).
			Render(theme.StyleHeader.Render("DISCONNECTED") + "\n" +
				theme.StyleDimmed.Render("Reconnecting to the status feed..."))
		return lipgloss.JoinVertical(lipgloss.Left, m.renderStatusBar(), box, m.help.View(m.keys))
	}

	top := []string{
		m.renderStatusBar(),
		m.renderDevices(),
		m.renderPlayspace(),
		m.renderCounters(),
	}
	used := lipgloss.Height(lipgloss.JoinVertical(lipgloss.Left, top...)) + 2
	logHeight := max(m.height-used-1, 3)

	sections := append(top, m.calls.View(m.width, logHeight), m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatusBar() string {
	var conn string
	if m.connected {
		conn = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		conn = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	parts := []string{conn}
	if m.connected {
		parts = append(parts,
			flag("bridge", m.status.Bridge),
			flag("streaming", m.status.Streaming),
		)
		if m.status.ShutdownRequested {
			parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("shutdown requested"))
		}
		if id := m.status.RunID; id != "" {
			parts = append(parts, theme.StyleDimmed.Render("run "+shortID(id)))
		}
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	return lipgloss.NewStyle().
		Width(max(m.width-2, 40)).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(strings.Join(parts, sep))
}

func flag(name string, on bool) string {
	if on {
		return lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render(name + " on")
	}
	return theme.StyleDimmed.Render(name + " off")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m Model) renderDevices() string {
	lines := []string{theme.StyleHeader.Render(" DEVICES ")}
	if len(m.status.Batteries) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  No battery reports yet."))
		return strings.Join(lines, "\n")
	}
	for _, b := range m.status.Batteries {
		lines = append(lines, "  "+batteryLine(b))
	}
	return strings.Join(lines, "\n")
}

const gaugeWidth = 20

func batteryLine(b host.BatteryState) string {
	filled := int(math.Round(float64(b.Gauge) * gaugeWidth))
	filled = min(max(filled, 0), gaugeWidth)
	bar := lipgloss.NewStyle().Foreground(theme.BatteryColor(b.Gauge)).Render(strings.Repeat("█", filled)) +
		theme.StyleDimmed.Render(strings.Repeat("░", gaugeWidth-filled))
	plug := ""
	if b.IsPlugged {
		plug = " ⚡"
	}
	return fmt.Sprintf("%-12s %s %3.0f%%%s", deviceName(b.DeviceID), bar, b.Gauge*100, plug)
}

func deviceName(id uint64) string {
	switch id {
	case devices.HeadID:
		return "headset"
	case devices.LeftHandID:
		return "left hand"
	case devices.RightHandID:
		return "right hand"
	default:
		return fmt.Sprintf("%016x", id)
	}
}

func (m Model) renderPlayspace() string {
	var parts []string
	if c := m.status.Chaperone; c != nil {
		parts = append(parts, fmt.Sprintf("playspace %.2f x %.2f m", c.Width, c.Height))
	}
	if v := m.status.Views; v != nil {
		parts = append(parts, fmt.Sprintf("ipd %.1f mm", v.IPD*1000))
		l := v.Fov[0]
		parts = append(parts, fmt.Sprintf("fov %.0f° x %.0f°", degrees(l.Right-l.Left), degrees(l.Up-l.Down)))
	}
	if len(parts) == 0 {
		return theme.StyleDimmed.Render("  No playspace or view configuration yet.")
	}
	return "  " + strings.Join(parts, "   ")
}

func degrees(rad float32) float64 {
	return float64(rad) * 180 / math.Pi
}

func (m Model) renderCounters() string {
	s := m.status
	parts := []string{
		fmt.Sprintf("resyncs %d", s.Resyncs),
		fmt.Sprintf("idr %d", s.IDRs),
		fmt.Sprintf("calls %d", s.Calls),
	}
	if d := s.Dispatch; d != nil {
		parts = append(parts, fmt.Sprintf("events %d", d.Events))
	}
	if p := s.Process; p != nil {
		parts = append(parts,
			fmt.Sprintf("cpu %.1f%%", p.CPUPercent),
			fmt.Sprintf("rss %.1f MiB", float64(p.RSSBytes)/(1<<20)),
			fmt.Sprintf("goroutines %d", p.Goroutines),
		)
	}
	return theme.StyleDimmed.Render("  " + strings.Join(parts, "  "))
}
