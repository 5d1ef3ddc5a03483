package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorPrimary = "#7D56F4"
	colorSuccess = "#04B575"
	colorError   = "#FF5F5F"
	colorInfo    = "#626262"
	colorBorder  = "#874BFD"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorPrimary)).
		MarginBottom(1)

	recordTitleStyle = lipgloss.NewStyle().Bold(true)

	factStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorSuccess))

	pendingStyle = lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color(colorInfo))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorError))

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorInfo))

	boxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorBorder)).
		Padding(1, 2)
)
