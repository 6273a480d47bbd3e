package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// Color constants using ANSI 256-color palette.
const (
	// ColorPrimary is used for headers and numbers (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess marks done cases (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning marks failed cases (orange/yellow).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger marks errored cases (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

// Box styles.
var (
	// HeaderBox holds the study title and counts.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox holds the summary line.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

// Text styles.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	NumberStyle  = lipgloss.NewStyle().Foreground(ColorPrimary)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)

	// TableHeaderStyle is used for table column headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted)
)

// StatusStyle returns the style for a case status.
func StatusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusDone:
		return SuccessStyle
	case types.StatusFailed:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
