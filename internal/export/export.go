package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"codex-audit/internal/analysis"
)

// Options selects what the transcript includes beyond user and assistant turns.
type Options struct {
	IncludeTools     bool
	IncludeReasoning bool
	IncludeFindings  bool
}

func DefaultOptions() Options {
	return Options{IncludeReasoning: true, IncludeFindings: true}
}

type Exporter struct {
	overrideDir string
	cwd         string
}

func New(overrideDir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd}, nil
}

// Export writes the session transcript and returns the file path. Without an
// override directory the file goes to docs/codex under the repository that
// contains the session's cwd.
func (e *Exporter) Export(sa analysis.SessionAnalysis, sessionCwd string, opts Options) (string, error) {
	path := e.outputPath(sa.SessionID, sessionCwd)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	body := BuildTranscriptMarkdown(sa, opts)
	md := BuildSessionMarkdown(sa, sessionCwd, body, time.Now().UTC())
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// block is one rendered transcript section positioned by time.
type block struct {
	tsMs int64
	text string
}

// BuildTranscriptMarkdown renders the reasoning-grouped conversation, with
// tool calls interleaved by start time when requested.
func BuildTranscriptMarkdown(sa analysis.SessionAnalysis, opts Options) string {
	var blocks []block
	for _, node := range sa.GroupedConversation() {
		if s := renderNode(node, opts); s != "" {
			blocks = append(blocks, block{tsMs: node.Items[0].TsMs, text: s})
		}
	}
	if opts.IncludeTools {
		for _, call := range sa.ToolCalls {
			blocks = append(blocks, block{tsMs: call.TsMs, text: renderToolCall(call)})
		}
		sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].tsMs < blocks[j].tsMs })
	}

	var b strings.Builder
	for _, bl := range blocks {
		b.WriteString(bl.text)
	}
	if opts.IncludeFindings && len(sa.Findings) > 0 {
		b.WriteString(renderFindings(sa.Findings))
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func renderNode(node analysis.ConversationNode, opts Options) string {
	if node.Kind == analysis.NodeReasoningGroup {
		if !opts.IncludeReasoning {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "<details>\n<summary>Reasoning (%d steps)</summary>\n\n", len(node.Items))
		for _, it := range node.Items {
			b.WriteString(strings.TrimSpace(it.Text) + "\n\n")
		}
		b.WriteString("</details>\n\n")
		return b.String()
	}

	it := node.Items[0]
	content := strings.TrimSpace(it.Text)
	switch it.Role {
	case analysis.RoleUser:
		content = sanitizeUserTranscriptContent(content)
		if content == "" {
			return ""
		}
		return "## You\n\n" + content + "\n\n"
	case analysis.RoleAssistant:
		if content == "" {
			return ""
		}
		return "## Codex\n\n" + content + "\n\n"
	case analysis.RoleReasoning:
		if !opts.IncludeReasoning || content == "" {
			return ""
		}
		return "### Reasoning\n\n" + quote(content) + "\n\n"
	}
	return ""
}

func renderToolCall(call analysis.ToolCall) string {
	var b strings.Builder
	title := "## Tool: " + safeValue(call.Name)
	status := string(call.Status)
	if d := call.DurationMs(); d > 0 {
		status += ", " + (time.Duration(d) * time.Millisecond).String()
	}
	b.WriteString(title + " (" + status + ")\n\n")
	if in := strings.TrimSpace(call.Input); in != "" {
		b.WriteString(fence(in) + "\n")
	}
	if out := strings.TrimSpace(call.OutputRaw); out != "" {
		b.WriteString(fence(out) + "\n")
	}
	return b.String()
}

func renderFindings(findings []analysis.EventFinding) string {
	var b strings.Builder
	b.WriteString("## Findings\n\n")
	for _, f := range findings {
		line := "- **" + strings.ToUpper(safeValue(string(f.Severity))) + "**"
		if f.RuleID != "" {
			line += " `" + f.RuleID + "`"
		}
		line += " " + safeValue(f.Message)
		b.WriteString(line + "\n")
	}
	return b.String() + "\n"
}

// fence wraps s in a code fence longer than any backtick run inside it.
func fence(s string) string {
	ticks := "```"
	for strings.Contains(s, ticks) {
		ticks += "`"
	}
	return ticks + "text\n" + s + "\n" + ticks + "\n"
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("> "+l, " ")
	}
	return strings.Join(lines, "\n")
}

func sanitizeUserTranscriptContent(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	lower := strings.ToLower(content)
	if strings.Contains(lower, "<instructions>") {
		// Structured AGENTS blocks survive only while the referenced AGENTS.md
		// still exists.
		return strings.TrimSpace(stripStaleStructuredAgentsBlock(content))
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isAgentsHeadingLine(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var agentsHeadingLineRe = regexp.MustCompile(`(?i)^[\s#>*` + "`" + `-]*agents\.md instructions for\b`)
var instructionsBlockRe = regexp.MustCompile(`(?is)<instructions>.*?</instructions>`)

func isAgentsHeadingLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	return agentsHeadingLineRe.MatchString(trimmed)
}

func stripStaleStructuredAgentsBlock(content string) string {
	path, ok := agentsPathFromContent(content)
	if !ok || agentsFileExists(path) {
		return content
	}

	lines := strings.Split(content, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		if isAgentsHeadingLine(line) {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := instructionsBlockRe.ReplaceAllString(strings.Join(filtered, "\n"), "")
	return strings.TrimSpace(joined)
}

func agentsPathFromContent(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !isAgentsHeadingLine(trimmed) {
			continue
		}
		lower := strings.ToLower(trimmed)
		idx := strings.Index(lower, "agents.md instructions for")
		if idx < 0 {
			continue
		}
		path := strings.Trim(strings.TrimSpace(trimmed[idx+len("agents.md instructions for"):]), "`'\"")
		if path == "" {
			return "", false
		}
		return path, true
	}
	return "", false
}

func agentsFileExists(path string) bool {
	st, err := os.Stat(filepath.Join(path, "AGENTS.md"))
	return err == nil && !st.IsDir()
}

// BuildSessionMarkdown wraps a transcript with a header block of session KPIs.
func BuildSessionMarkdown(sa analysis.SessionAnalysis, cwd, transcript string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Codex session " + sa.SessionID + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString("workdir: " + safeValue(cwd) + "\n")
	b.WriteString("models: " + safeValue(modelList(sa.Models)) + "\n")
	b.WriteString(fmt.Sprintf("messages: %d\n", len(sa.Conversation)))
	b.WriteString(fmt.Sprintf("tool_calls: %d\n", len(sa.ToolCalls)))
	b.WriteString("tokens: " + humanize.Comma(sa.LastTokenTotal.TotalTokens) + "\n")
	if sa.MaxModelContextWindow > 0 {
		b.WriteString("context_window: " + humanize.Comma(sa.MaxModelContextWindow) + "\n")
	}
	b.WriteString(fmt.Sprintf("findings: %d (%d high)\n", len(sa.Findings), sa.FindingsHigh))
	b.WriteString("```\n\n")
	b.WriteString(transcript)
	if !strings.HasSuffix(transcript, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func modelList(models []analysis.ModelUsage) string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, fmt.Sprintf("%s (%d)", m.Name, m.Count))
	}
	return strings.Join(names, ", ")
}

func (e *Exporter) outputPath(sessionID, sessionCwd string) string {
	if e.overrideDir != "" {
		dir := e.overrideDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.cwd, dir)
		}
		return filepath.Join(dir, safeFileName(sessionID)+".md")
	}

	root := e.cwd
	if sessionCwd != "" {
		if repoRoot := findRepoRoot(sessionCwd); repoRoot != "" {
			root = repoRoot
		}
	}
	return filepath.Join(root, "docs", "codex", safeFileName(sessionID)+".md")
}

func findRepoRoot(start string) string {
	if start == "" {
		return ""
	}
	path := filepath.Clean(start)
	for {
		if st, err := os.Stat(filepath.Join(path, ".git")); err == nil && st != nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return ""
		}
		path = parent
	}
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "session"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
