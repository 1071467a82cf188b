package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"codex-audit/internal/analysis"
)

// Timeline renders one line per item, optionally limited to one category.
// Previews are cut to width visible cells; width <= 0 disables the cut.
func Timeline(items []analysis.TimelineItem, only analysis.Category, width int) string {
	var b strings.Builder
	for _, it := range items {
		if only != "" && it.Category != only {
			continue
		}
		b.WriteString(timelineLine(it, width))
		b.WriteByte('\n')
	}
	return b.String()
}

func timelineLine(it analysis.TimelineItem, width int) string {
	tag := lipgloss.NewStyle().
		Foreground(categoryColors[string(it.Category)]).
		Width(11).
		Render(string(it.Category))

	line := dimStyle.Render(formatClock(it.TsMs)) + " " + tag + " " + lipgloss.NewStyle().Bold(true).Render(it.Title)
	if it.Subtitle != "" {
		line += " " + dimStyle.Render(it.Subtitle)
	}
	if it.Findings > 0 {
		line += " " + badgeStyle.Render("!"+strconv.Itoa(it.Findings))
	}
	if it.Preview != "" {
		line += "  " + it.Preview
	}
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	return line
}
