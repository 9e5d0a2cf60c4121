package sessions

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	session  lipgloss.Style
	key      lipgloss.Style
	detail   lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	joined   lipgloss.Style
	left     lipgloss.Style
	pending  lipgloss.Style
	tag      lipgloss.Style
	staleTag lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		session:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		joined:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		left:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		tag:      lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		staleTag: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}
