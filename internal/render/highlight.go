package render

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

// Matches is the outcome of highlighting a query in styled text.
type Matches struct {
	Text  string
	Count int
	Lines []int
}

// Highlight wraps case-insensitive occurrences of query in already styled
// text. Escape sequences are copied through untouched and a match never spans
// one.
func Highlight(input, query string, wrap func(string) string) Matches {
	query = strings.TrimSpace(query)
	if query == "" {
		return Matches{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	var out strings.Builder
	res := Matches{}
	for lineNo, line := range strings.SplitAfter(input, "\n") {
		core, hasNewline := strings.CutSuffix(line, "\n")
		rendered, count := highlightStyled(core, query, wrap)
		out.WriteString(rendered)
		if hasNewline {
			out.WriteByte('\n')
		}
		if count > 0 {
			res.Lines = append(res.Lines, lineNo)
			res.Count += count
		}
	}
	res.Text = out.String()
	return res
}

// GrepLines keeps the lines of styled text whose visible content contains
// query, highlighting the matches. Context lines around a hit are kept too.
func GrepLines(input, query string, context int, wrap func(string) string) Matches {
	lines := strings.Split(input, "\n")
	keep := make([]bool, len(lines))
	q := strings.ToLower(strings.TrimSpace(query))
	for i, line := range lines {
		if q == "" || !strings.Contains(strings.ToLower(ansi.Strip(line)), q) {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}

	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if keep[i] {
			kept = append(kept, line)
		}
	}
	return Highlight(strings.Join(kept, "\n"), query, wrap)
}

func highlightStyled(s, query string, wrap func(string) string) (string, int) {
	indices := ansiCSI.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return highlightPlain(s, query, wrap)
	}

	var out strings.Builder
	total, pos := 0, 0
	for _, idx := range indices {
		if idx[0] > pos {
			plain, count := highlightPlain(s[pos:idx[0]], query, wrap)
			out.WriteString(plain)
			total += count
		}
		out.WriteString(s[idx[0]:idx[1]])
		pos = idx[1]
	}
	if pos < len(s) {
		plain, count := highlightPlain(s[pos:], query, wrap)
		out.WriteString(plain)
		total += count
	}
	return out.String(), total
}

func highlightPlain(s, query string, wrap func(string) string) (string, int) {
	lower := strings.ToLower(s)
	q := strings.ToLower(query)
	if s == "" || !strings.Contains(lower, q) {
		return s, 0
	}

	var out strings.Builder
	count, start := 0, 0
	for {
		rel := strings.Index(lower[start:], q)
		if rel < 0 {
			out.WriteString(s[start:])
			break
		}
		idx := start + rel
		end := idx + len(q)
		out.WriteString(s[start:idx])
		out.WriteString(wrap(s[idx:end]))
		count++
		start = end
	}
	return out.String(), count
}
