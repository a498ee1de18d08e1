package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the lipgloss styles of the home screen.
type Theme struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style
	Card     lipgloss.Style

	Day      lipgloss.Style
	OutDay   lipgloss.Style
	Today    lipgloss.Style
	Selected lipgloss.Style
	Marker   lipgloss.Style

	Live   lipgloss.Style
	Notice lipgloss.Style
	Error  lipgloss.Style
}

// DefaultTheme works on light and dark terminals.
func DefaultTheme() Theme {
	return Theme{
		Title:    lipgloss.NewStyle().Bold(true),
		Subtitle: lipgloss.NewStyle().Faint(true),
		Help:     lipgloss.NewStyle().Faint(true),
		Card: lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")),

		Day:      lipgloss.NewStyle().Width(4).Align(lipgloss.Right),
		OutDay:   lipgloss.NewStyle().Width(4).Align(lipgloss.Right).Faint(true),
		Today:    lipgloss.NewStyle().Width(4).Align(lipgloss.Right).Underline(true),
		Selected: lipgloss.NewStyle().Width(4).Align(lipgloss.Right).Reverse(true),
		Marker:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),

		Live:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Notice: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}
