// Package theme provides the Lip Gloss palette and reusable styles for the
// monitor. It is a leaf package with no internal imports.
package theme

import "github.com/charmbracelet/lipgloss"

// Battery gauge colors.
var (
	ColorBatteryHigh = lipgloss.Color("#22c55e") // >50%
	ColorBatteryMid  = lipgloss.Color("#d97706") // 20-50%
	ColorBatteryLow  = lipgloss.Color("#dc2626") // <20%
)

// Host call category colors.
var (
	ColorLifecycle = lipgloss.Color("#7c3aed")
	ColorStream    = lipgloss.Color("#2563eb")
	ColorDevice    = lipgloss.Color("#06b6d4")
	ColorRecovery  = lipgloss.Color("#d97706")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// BatteryColor returns the color for a gauge value in [0, 1].
func BatteryColor(gauge float32) lipgloss.Color {
	switch {
	case gauge > 0.5:
		return ColorBatteryHigh
	case gauge >= 0.2:
		return ColorBatteryMid
	default:
		return ColorBatteryLow
	}
}

// CallColor returns the color for a host call kind.
func CallColor(kind string) lipgloss.Color {
	switch kind {
	case "init_bridge", "shutdown_bridge", "shutdown_runtime":
		return ColorLifecycle
	case "initialize_streaming", "deinitialize_streaming", "set_views_config":
		return ColorStream
	case "set_battery", "set_chaperone_area", "set_property", "register_button":
		return ColorDevice
	case "request_driver_resync", "request_idr":
		return ColorRecovery
	default:
		return ColorDimmed
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)
)
