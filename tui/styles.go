package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	StyleTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	StyleSubtitle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	StyleHelp     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	StyleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	StyleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	StyleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	StyleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	StyleSpinner  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	StyleModal    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	StyleTour = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("220")).
			Padding(0, 1)
)

// headerLine places left-aligned text and a right-aligned refreshed timestamp on the same line.
// width is the full terminal width; padding (4) is subtracted for the content area.
func headerLine(left string, width int, t time.Time) string {
	right := "Refreshed: " + formatRefreshTime(t)
	contentWidth := width - 4 // account for outer Padding(1,2)
	leftLen := lipgloss.Width(left)
	rightLen := len(right)
	gap := contentWidth - leftLen - rightLen
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + StyleDim.Render(right)
}

// formatRefreshTime formats a time as an HH:MM:SS timestamp.
func formatRefreshTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

func renderHelp(s string) string {
	return StyleHelp.Render(s)
}

// tableStyles is shared by every table so the selected row looks the same on each screen.
func tableStyles(selectedBg string) table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("255")).
		Background(lipgloss.Color(selectedBg)).
		Bold(false)
	return s
}

// CLISpinner matches the braille spinner used in the CLI output.
var CLISpinner = spinner.Spinner{
	Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	FPS:    time.Second / 10,
}
