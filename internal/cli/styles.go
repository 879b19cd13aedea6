package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#22A06B")
	colorRed    = lipgloss.Color("#D93025")
	colorYellow = lipgloss.Color("#F59E0B")
	colorSlate  = lipgloss.Color("#667085")

	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorSlate)
)

const (
	iconCheck = "✓"
	iconCross = "✗"
	iconWarn  = "!"
)
