// Package display renders conflict reports, search results and lint issues
// for the terminal.
package display

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#06B6D4") // Cyan
	Success   = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
)

var (
	// TitleStyle is used for section headings.
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	// PackageStyle highlights package names.
	PackageStyle = lipgloss.NewStyle().
			Bold(true)

	// RangeStyle highlights version ranges.
	RangeStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	// MutedStyle is for secondary text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	// WarningStyle is for conflicts.
	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	// ErrorStyle is for unsatisfied requirements and lint issues.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error)

	// SuccessStyle is for clean results.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)
)

// Icons.
var (
	IconOK       = SuccessStyle.Render("✓")
	IconConflict = WarningStyle.Render("!")
	IconError    = ErrorStyle.Render("✗")
)
