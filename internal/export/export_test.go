package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codex-audit/internal/analysis"
)

func item(i int, role analysis.Role, text string) analysis.ConversationItem {
	return analysis.ConversationItem{Key: strings.Repeat("k", i+1), TsMs: int64(i) * 1000, Role: role, Text: text}
}

func session(items ...analysis.ConversationItem) analysis.SessionAnalysis {
	return analysis.SessionAnalysis{SessionID: "s1", Conversation: items}
}

func TestBuildTranscriptMarkdown_RolesAndReasoningGroups(t *testing.T) {
	sa := session(
		item(0, analysis.RoleUser, "fix the test"),
		item(1, analysis.RoleReasoning, "look at the failure"),
		item(2, analysis.RoleReasoning, "patch the helper"),
		item(3, analysis.RoleAssistant, "done"),
		item(4, analysis.RoleReasoning, "lone thought"),
	)
	out := BuildTranscriptMarkdown(sa, DefaultOptions())

	for _, want := range []string{"## You\n\nfix the test", "<summary>Reasoning (2 steps)</summary>", "## Codex\n\ndone", "### Reasoning\n\n> lone thought"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "look at the failure") > strings.Index(out, "## Codex") {
		t.Fatalf("group must stay before the assistant reply:\n%s", out)
	}

	opts := DefaultOptions()
	opts.IncludeReasoning = false
	if out := BuildTranscriptMarkdown(sa, opts); strings.Contains(out, "Reasoning") {
		t.Fatalf("reasoning should be hidden:\n%s", out)
	}
}

func TestBuildTranscriptMarkdown_InterleavesTools(t *testing.T) {
	sa := session(item(0, analysis.RoleUser, "list files"), item(5, analysis.RoleAssistant, "two files"))
	sa.ToolCalls = []analysis.ToolCall{{
		CallID: "c1", Name: "shell", TsMs: 2000, CompletedMs: 3500,
		Status: analysis.ToolCompleted, Input: `{"cmd":["ls"]}`, OutputRaw: "a.go\nb.go",
	}}

	if out := BuildTranscriptMarkdown(sa, DefaultOptions()); strings.Contains(out, "## Tool") {
		t.Fatalf("tools are off by default:\n%s", out)
	}

	opts := DefaultOptions()
	opts.IncludeTools = true
	out := BuildTranscriptMarkdown(sa, opts)
	if !strings.Contains(out, "## Tool: shell (completed, 1.5s)") {
		t.Fatalf("missing tool header:\n%s", out)
	}
	you, tool, codex := strings.Index(out, "## You"), strings.Index(out, "## Tool"), strings.Index(out, "## Codex")
	if !(you < tool && tool < codex) {
		t.Fatalf("tool call should sit between the turns:\n%s", out)
	}
}

func TestBuildTranscriptMarkdown_FenceEscapesBackticks(t *testing.T) {
	sa := session()
	sa.ToolCalls = []analysis.ToolCall{{CallID: "c1", Name: "apply_patch", Status: analysis.ToolCalled, Input: "```go\nx\n```"}}
	opts := DefaultOptions()
	opts.IncludeTools = true
	out := BuildTranscriptMarkdown(sa, opts)
	if !strings.Contains(out, "````text\n```go") {
		t.Fatalf("expected a longer fence:\n%s", out)
	}
}

func TestBuildTranscriptMarkdown_Findings(t *testing.T) {
	sa := session(item(0, analysis.RoleUser, "hi"))
	sa.Findings = []analysis.EventFinding{{Finding: analysis.Finding{RuleID: "secrets", Severity: analysis.SeverityHigh, Message: "token in prompt"}}}
	out := BuildTranscriptMarkdown(sa, DefaultOptions())
	if !strings.Contains(out, "- **HIGH** `secrets` token in prompt") {
		t.Fatalf("missing finding line:\n%s", out)
	}
}

func TestBuildTranscriptMarkdown_StripsUnstructuredAgentsHeading(t *testing.T) {
	sa := session(
		item(0, analysis.RoleUser, "# AGENTS.md instructions for /tmp/repo\n\nexecute SPECS.md"),
		item(1, analysis.RoleAssistant, "ok"),
	)
	out := BuildTranscriptMarkdown(sa, DefaultOptions())
	if strings.Contains(strings.ToLower(out), "# agents.md instructions for ") {
		t.Fatalf("expected unstructured AGENTS heading to be removed, got:\n%s", out)
	}
	if !strings.Contains(out, "execute SPECS.md") {
		t.Fatalf("expected conversational content to remain, got:\n%s", out)
	}
}

func TestBuildTranscriptMarkdown_PreservesStructuredAgentsBlock(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write AGENTS.md: %v", err)
	}
	sa := session(item(0, analysis.RoleUser, "# AGENTS.md instructions for "+dir+"\n<INSTRUCTIONS>\nkeep me\n</INSTRUCTIONS>"))
	out := BuildTranscriptMarkdown(sa, DefaultOptions())
	if !strings.Contains(out, "<INSTRUCTIONS>") {
		t.Fatalf("expected structured AGENTS block to be preserved, got:\n%s", out)
	}
}

func TestBuildTranscriptMarkdown_StripsStaleStructuredAgentsBlock(t *testing.T) {
	dir := t.TempDir()
	sa := session(item(0, analysis.RoleUser, "# AGENTS.md instructions for "+dir+"\n<INSTRUCTIONS>\nkeep me\n</INSTRUCTIONS>\nexecute SPECS.md"))
	out := BuildTranscriptMarkdown(sa, DefaultOptions())
	if strings.Contains(out, "<INSTRUCTIONS>") {
		t.Fatalf("expected stale instructions block to be removed, got:\n%s", out)
	}
	if !strings.Contains(out, "execute SPECS.md") {
		t.Fatalf("expected conversational content to remain, got:\n%s", out)
	}
}

func TestBuildSessionMarkdown_Header(t *testing.T) {
	sa := session()
	sa.Models = []analysis.ModelUsage{{Name: "gpt-5", Count: 3}}
	sa.LastTokenTotal = analysis.TokenUsage{TotalTokens: 1234567}
	sa.MaxModelContextWindow = 272000
	now := time.Date(2025, 11, 27, 15, 0, 0, 0, time.UTC)

	md := BuildSessionMarkdown(sa, "", "body\n", now)
	for _, want := range []string{
		"# Codex session s1", "Exported: 2025-11-27T15:00:00Z", "workdir: n/a",
		"models: gpt-5 (3)", "tokens: 1,234,567", "context_window: 272,000", "findings: 0 (0 high)",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
	if !strings.HasSuffix(md, "body\n") {
		t.Fatalf("transcript should close the document")
	}
}

func TestExport_WritesUnderRepoRoot(t *testing.T) {
	repo := t.TempDir()
	if err := os.Mkdir(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	workdir := filepath.Join(repo, "pkg", "sub")
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	e, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sa := session(item(0, analysis.RoleUser, "hi"))
	sa.SessionID = "2025/11:27 run"
	path, err := e.Export(sa, workdir, DefaultOptions())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := filepath.Join(repo, "docs", "codex", "2025_11_27_run.md"); path != want {
		t.Fatalf("path=%s want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "## You\n\nhi") {
		t.Fatalf("unexpected export:\n%s", data)
	}
}

func TestExport_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	e, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	path, err := e.Export(session(), "/nowhere", DefaultOptions())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if path != filepath.Join(dir, "s1.md") {
		t.Fatalf("unexpected path %s", path)
	}
}
