package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for terminal output.
var (
	ColorPrimary   = lipgloss.Color("#1e8449") // Ledger green
	ColorSecondary = lipgloss.Color("#2e86c1") // Blue
	ColorMuted     = lipgloss.Color("#95a5a6") // Gray
	ColorWarning   = lipgloss.Color("#f39c12") // Amber
	ColorError     = lipgloss.Color("#e74c3c") // Red
	ColorSuccess   = lipgloss.Color("#2ecc71") // Bright green
)

var (
	// TitleStyle for headings, including meta-prompt section headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// SelectedStyle and UnselectedStyle mark list items in the setup wizard.
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	ModelStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// CostStyle for model pricing in the setup summary.
	CostStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	// StageStyle for table names in import progress.
	StageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)
)

// BoxStyle frames the setup summary.
var BoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorPrimary).
	Padding(1, 2)
