package ui

import "github.com/charmbracelet/lipgloss"

// ANSI colors, so output degrades cleanly on 16-color terminals.
var (
	colorCyan    = lipgloss.Color("6")
	colorYellow  = lipgloss.Color("3")
	colorRed     = lipgloss.Color("1")
	colorGreen   = lipgloss.Color("2")
	colorMagenta = lipgloss.Color("5")
	colorGray    = lipgloss.Color("8")
)

// Message styles
var (
	// Progress lines ("Replaying 1,204 ops...", "Publishing metrics...")
	StatusStyle  = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorGreen)
	MutedStyle   = lipgloss.NewStyle().Foreground(colorGray)

	// Summary labels and table headers
	LabelStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)

	SectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCyan).
				MarginBottom(1)
)

// Cache outcome styles
var (
	HitStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	MissStyle  = lipgloss.NewStyle().Foreground(colorYellow)
	EvictStyle = lipgloss.NewStyle().Foreground(colorRed)

	// Keys in a recency listing
	KeyStyle = lipgloss.NewStyle().Foreground(colorMagenta)
)
