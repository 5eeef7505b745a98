package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#9D8CFF"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#8A8A8A"}
	colorDanger = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"}
	colorDone   = lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#5FD787"}

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle     = lipgloss.NewStyle().Foreground(colorDanger)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(colorAccent).Padding(0, 1)
	tabStyle       = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	doneStyle      = lipgloss.NewStyle().Strikethrough(true).Foreground(colorDone)
	confirmStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDanger).Padding(0, 1)
	frameStyle     = lipgloss.NewStyle().Padding(1, 2)

	priorityStyles = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(colorDanger),
		"medium": lipgloss.NewStyle().Foreground(colorAccent),
		"low":    lipgloss.NewStyle().Foreground(colorMuted),
	}
)
