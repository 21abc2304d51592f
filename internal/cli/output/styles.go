package output

import "github.com/charmbracelet/lipgloss"

// Styles holds lipgloss styles bound to one renderer.
type Styles struct {
	Header    lipgloss.Style
	Subheader lipgloss.Style
	Bold      lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Info      lipgloss.Style
	Muted     lipgloss.Style
	Path      lipgloss.Style
	Code      lipgloss.Style
}

// NewStyles creates the default palette for lr.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:    lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Subheader: lr.NewStyle().Bold(true),
		Bold:      lr.NewStyle().Bold(true),
		Success:   lr.NewStyle().Foreground(lipgloss.Color("10")),
		Error:     lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning:   lr.NewStyle().Foreground(lipgloss.Color("11")),
		Info:      lr.NewStyle().Foreground(lipgloss.Color("14")),
		Muted:     lr.NewStyle().Foreground(lipgloss.Color("8")),
		Path:      lr.NewStyle().Foreground(lipgloss.Color("13")),
		Code:      lr.NewStyle().Foreground(lipgloss.Color("7")),
	}
}
