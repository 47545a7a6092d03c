package status

import (
	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	account    lipgloss.Style
	active     lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	statuses   map[domain.Status]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		active:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("84")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		statuses: map[domain.Status]lipgloss.Style{
			domain.StatusReady:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
			domain.StatusActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			domain.StatusDead:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			domain.StatusBuilding: lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		},
	}
}

func (s styles) status(status domain.Status) lipgloss.Style {
	if style, ok := s.statuses[status]; ok {
		return style
	}

	return s.detail
}
