package cli

import "github.com/charmbracelet/lipgloss"

var (
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")) // blue
	answerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")) // green
	headerStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red
)
