package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// maxMarkdownBytes is the size above which markdown is shown unrendered.
const maxMarkdownBytes = 500_000

// Markdown renders md for the terminal with a glamour style. Oversized input
// is returned as-is.
func Markdown(md, style string, wrap int) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "_No transcript content._\n", nil
	}
	if len(md) > maxMarkdownBytes {
		return md, nil
	}
	if style == "" {
		style = DefaultMarkdownStyle
	}
	if wrap <= 0 {
		wrap = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md, fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return md, fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
