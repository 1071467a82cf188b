// Package render formats analysis results for a terminal.
package render

import "github.com/charmbracelet/lipgloss"

// DefaultMarkdownStyle is the glamour style used when none is configured.
const DefaultMarkdownStyle = "dark"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Padding(0, 1)
	badgeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	// MatchStyle marks search hits.
	MatchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("220"))

	categoryColors = map[string]lipgloss.Color{
		"messages":  lipgloss.Color("39"),
		"reasoning": lipgloss.Color("141"),
		"tools":     lipgloss.Color("214"),
		"meta":      lipgloss.Color("244"),
		"files":     lipgloss.Color("78"),
		"other":     lipgloss.Color("250"),
	}
)
