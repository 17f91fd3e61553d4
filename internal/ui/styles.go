// Package ui holds the lipgloss styles shared by the terminal views.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/scribe/internal/notify"
)

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorBlue    = lipgloss.Color("#2196F3")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBlue)

	RecordingDotStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	ConnectingDotStyle = lipgloss.NewStyle().
				Foreground(ColorMagenta).
				Bold(true)

	IdleDotStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PartialTextStyle = lipgloss.NewStyle().
				Foreground(ColorYellow)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	SettingKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	SettingOnStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	SettingOffStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	LiveBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ScrollBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)

	InputStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorDimGray)
)

// Notification styles by severity.
var (
	NotifyErrorStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Background(ColorRed).
				Bold(true)

	NotifySuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#000000")).
				Background(ColorGreen)

	NotifyInfoStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorBlue)
)

// NotificationStyle returns the style for sev.
func NotificationStyle(sev notify.Severity) lipgloss.Style {
	switch sev {
	case notify.Error:
		return NotifyErrorStyle
	case notify.Success:
		return NotifySuccessStyle
	default:
		return NotifyInfoStyle
	}
}
