// Package styles provides colour themes and styling for the chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette of the chat UI. Colours are named by what they mark
// in a conversation rather than by hue.
type Theme struct {
	// Accent highlights titles, the assistant and the spinner.
	Accent lipgloss.Color

	// User marks messages typed by the user.
	User lipgloss.Color

	// Text is the default foreground.
	Text lipgloss.Color

	// Dim is used for hints, timestamps and the status bar.
	Dim lipgloss.Color

	// Surface is the status bar background.
	Surface lipgloss.Color

	// Ready marks a loaded corpus.
	Ready lipgloss.Color

	// Caution marks tool use and degraded answers.
	Caution lipgloss.Color

	// Failure marks errors and an ended conversation.
	Failure lipgloss.Color

	// Frame is the colour of borders.
	Frame lipgloss.Color
}

// DefaultTheme returns the palette for dark terminals.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#7C3AED"),
		User:    lipgloss.Color("#06B6D4"),
		Text:    lipgloss.Color("#CDD6F4"),
		Dim:     lipgloss.Color("#6C7086"),
		Surface: lipgloss.Color("#181825"),
		Ready:   lipgloss.Color("#A6E3A1"),
		Caution: lipgloss.Color("#F9E2AF"),
		Failure: lipgloss.Color("#F38BA8"),
		Frame:   lipgloss.Color("#45475A"),
	}
}

// LightTheme returns the palette for light terminals.
func LightTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#6D28D9"),
		User:    lipgloss.Color("#0E7490"),
		Text:    lipgloss.Color("#1F2937"),
		Dim:     lipgloss.Color("#6B7280"),
		Surface: lipgloss.Color("#E5E7EB"),
		Ready:   lipgloss.Color("#15803D"),
		Caution: lipgloss.Color("#B45309"),
		Failure: lipgloss.Color("#B91C1C"),
		Frame:   lipgloss.Color("#D1D5DB"),
	}
}

// ThemeFor picks the palette matching the terminal background.
func ThemeFor(darkBackground bool) *Theme {
	if darkBackground {
		return DefaultTheme()
	}
	return LightTheme()
}

// Styles are the lipgloss styles the views render with.
type Styles struct {
	theme *Theme

	// Chrome.
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style
	InputField lipgloss.Style

	// Text.
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style

	// Outcome.
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	// Transcript.
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ToolBadge      lipgloss.Style
	Spinner        lipgloss.Style
}

// NewStyles builds styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	framed := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Frame)

	return &Styles{
		theme: theme,

		Title:      fg(theme.Accent).Bold(true),
		Subtitle:   fg(theme.User).Bold(true),
		StatusBar:  fg(theme.Dim).Background(theme.Surface).Padding(0, 1),
		Help:       fg(theme.Dim),
		Border:     framed,
		InputField: framed.Padding(0, 1),

		Normal:   fg(theme.Text),
		Muted:    fg(theme.Dim),
		Selected: fg(theme.Text).Background(theme.Accent).Bold(true),

		Error:   fg(theme.Failure),
		Success: fg(theme.Ready),
		Warning: fg(theme.Caution),

		UserLabel:      fg(theme.User).Bold(true),
		AssistantLabel: fg(theme.Accent).Bold(true),
		ToolBadge:      fg(theme.Caution).Italic(true),
		Spinner:        fg(theme.Accent),
	}
}

// DefaultStyles returns styles for the terminal's background.
func DefaultStyles() *Styles {
	return NewStyles(ThemeFor(lipgloss.HasDarkBackground()))
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
