package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"codex-audit/internal/analysis"
	"codex-audit/internal/config"
)

const reportDoc = `{"data":{"updates":[
 {"sessionId":"alpha-1","cwd":"/repo","events":[
  {"timestamp":"2025-11-27T15:23:34Z","type":"turn_context","payload":{"model":"gpt-5"}},
  {"timestamp":"2025-11-27T15:23:35Z","type":"event_msg","payload":{"type":"user_message","message":"list the files"}},
  {"timestamp":"2025-11-27T15:23:36Z","type":"response_item","payload":{"type":"function_call","call_id":"c1","name":"shell","arguments":"{\"cmd\":[\"ls\"]}"}},
  {"timestamp":"2025-11-27T15:23:37Z","type":"response_item","payload":{"type":"function_call_output","call_id":"c1","output":"main.go"}},
  {"timestamp":"2025-11-27T15:23:38Z","type":"event_msg","payload":{"type":"agent_message","message":"only main.go"}},
  {"timestamp":"2025-11-27T15:23:39Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"total_tokens":1500},"last_token_usage":{"total_tokens":1500}}}}
 ],"findings":[]},
 {"sessionId":"beta-2","events":"broken"}
]}}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	var out, errOut bytes.Buffer
	a := &app{v: config.New(), stdin: strings.NewReader(reportDoc)}
	root := a.rootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeCommand_Report(t *testing.T) {
	out, err := run(t, "analyze", "-")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var ra analysis.ReportAnalysis
	if err := json.Unmarshal([]byte(out), &ra); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if ra.Summary.TotalSessions != 2 || ra.Summary.TotalTokens != 1500 {
		t.Fatalf("unexpected summary %#v", ra.Summary)
	}
	if ra.Sessions[1].Error == "" || ra.Sessions[1].Analysis != nil {
		t.Fatalf("broken session should report an error: %#v", ra.Sessions[1])
	}
}

func TestAnalyzeCommand_Session(t *testing.T) {
	out, err := run(t, "analyze", "-", "--session", "alpha")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var sa analysis.SessionAnalysis
	if err := json.Unmarshal([]byte(out), &sa); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if sa.SessionID != "alpha-1" || len(sa.ToolCalls) != 1 || sa.ToolCalls[0].Status != analysis.ToolCompleted {
		t.Fatalf("unexpected analysis %#v", sa)
	}
}

func TestSummaryCommand(t *testing.T) {
	out, err := run(t, "summary", "-")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	plain := ansi.Strip(out)
	if !strings.Contains(plain, "alpha-1") || !strings.Contains(plain, "beta-2") || !strings.Contains(plain, "1,500") {
		t.Fatalf("unexpected summary:\n%s", plain)
	}
}

func TestTimelineCommand_Category(t *testing.T) {
	out, err := run(t, "timeline", "-", "-s", "alpha", "-c", "tools")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	plain := ansi.Strip(out)
	if !strings.Contains(plain, "Used Tool: shell") || strings.Contains(plain, "list the files") {
		t.Fatalf("unexpected timeline:\n%s", plain)
	}
}

func TestTranscriptCommand_RawGrep(t *testing.T) {
	out, err := run(t, "transcript", "-", "-s", "alpha", "--raw", "--tools", "--grep", "main.go")
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	plain := ansi.Strip(out)
	if !strings.Contains(plain, "only main.go") || strings.Contains(plain, "list the files") {
		t.Fatalf("unexpected grep output:\n%s", plain)
	}
}

func TestTranscriptCommand_NoMatch(t *testing.T) {
	if _, err := run(t, "transcript", "-", "-s", "alpha", "--raw", "--grep", "zebra"); err == nil {
		t.Fatalf("expected an error for no matches")
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "export", "-", "-s", "alpha-1", "--out", dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path := strings.TrimSpace(out)
	if path != filepath.Join(dir, "alpha-1.md") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "## Codex\n\nonly main.go") {
		t.Fatalf("unexpected export:\n%s", data)
	}
}

func TestPickSession(t *testing.T) {
	r := analysis.Report{Sessions: []analysis.Session{{SessionID: "abc"}, {SessionID: "abd"}}}
	if _, err := pickSession(r, ""); err == nil {
		t.Fatalf("ambiguous report needs --session")
	}
	if s, err := pickSession(r, "abd"); err != nil || s.SessionID != "abd" {
		t.Fatalf("exact id lookup failed: %v", err)
	}
	if _, err := pickSession(r, "ab"); err == nil {
		t.Fatalf("ambiguous prefix should fail")
	}
	if _, err := pickSession(r, "zzz"); err == nil {
		t.Fatalf("unknown id should fail")
	}
	single := analysis.Report{Sessions: []analysis.Session{{SessionID: "only"}}}
	if s, err := pickSession(single, ""); err != nil || s.SessionID != "only" {
		t.Fatalf("single session should be picked: %v", err)
	}
}
