package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"codex-audit/internal/analysis"
)

var rolloutPathRe = regexp.MustCompile(`sessions[/\\]([^/\\]+)[/\\]rollout-.*\.jsonl$`)
var rolloutFilenameSessionIDRe = regexp.MustCompile(`rollout-.*-([0-9a-fA-F-]{36})\.jsonl$`)

const maxLineBytes = 8 * 1024 * 1024

// Stats counts what a load read and what it had to skip.
type Stats struct {
	Files   int `json:"files"`
	Lines   int `json:"lines"`
	Skipped int `json:"skipped"`
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Lines += o.Lines
	s.Skipped += o.Skipped
}

// lineFunc receives one decoded JSONL object.
type lineFunc func(obj map[string]any)

// scanLines decodes each non-blank line of r as a JSON object. Lines that do
// not parse are counted as skipped.
func scanLines(ctx context.Context, r io.Reader, fn lineFunc) (Stats, error) {
	stats := Stats{Files: 1}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil || obj == nil {
			stats.Skipped++
			continue
		}
		fn(obj)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	return stats, nil
}

// ReadRollout reads one rollout file into a session. The session id comes
// from the session_meta payload, else from the file path.
func ReadRollout(ctx context.Context, r io.Reader, path string) (analysis.Session, Stats, error) {
	s := analysis.Session{Events: []analysis.SessionEvent{}}
	stats, err := scanLines(ctx, r, func(obj map[string]any) {
		ev := analysis.DecodeEvent(obj)
		if ev.Type == analysis.TypeSessionMeta && s.SessionID == "" {
			s.SessionID = payloadString(ev, "id")
			s.Cwd = payloadString(ev, "cwd")
			s.GeneratedAt = firstNonEmpty(payloadString(ev, "timestamp"), ev.Timestamp)
		}
		if ev.Type == analysis.TypeTurnContext && s.Cwd == "" {
			s.Cwd = payloadString(ev, "cwd")
		}
		s.Events = append(s.Events, ev)
	})
	if err != nil {
		return analysis.Session{}, stats, fmt.Errorf("read rollout %s: %w", path, err)
	}
	if s.SessionID == "" {
		s.SessionID = SessionIDFromPath(path)
	}
	return s, stats, nil
}

// ReadHistory converts history.jsonl prompt lines into one session per
// session_id, in first-seen order. Each prompt becomes a user_message event.
func ReadHistory(ctx context.Context, r io.Reader) ([]analysis.Session, Stats, error) {
	var sessions []analysis.Session
	slot := make(map[string]int)
	stats, err := scanLines(ctx, r, func(obj map[string]any) {
		id := firstNonEmpty(stringField(obj, "session_id"), stringField(obj, "sessionId"), "history")
		text := firstNonEmpty(stringField(obj, "text"), stringField(obj, "message"))
		if text == "" {
			return
		}
		i, ok := slot[id]
		if !ok {
			i = len(sessions)
			slot[id] = i
			sessions = append(sessions, analysis.Session{SessionID: id, Events: []analysis.SessionEvent{}})
		}
		sessions[i].Events = append(sessions[i].Events, analysis.SessionEvent{
			Timestamp: firstNonEmpty(stringField(obj, "ts"), stringField(obj, "timestamp")),
			Type:      analysis.TypeEventMsg,
			Payload:   map[string]any{"type": "user_message", "message": text},
		})
	})
	if err != nil {
		return nil, stats, fmt.Errorf("read history: %w", err)
	}
	return sessions, stats, nil
}

// SessionIDFromPath infers a session id from a rollout path.
func SessionIDFromPath(sourcePath string) string {
	norm := filepath.ToSlash(sourcePath)
	if matches := rolloutFilenameSessionIDRe.FindStringSubmatch(filepath.Base(norm)); len(matches) == 2 {
		return matches[1]
	}
	if matches := rolloutPathRe.FindStringSubmatch(norm); len(matches) == 2 {
		return matches[1]
	}
	if strings.HasSuffix(norm, "/history.jsonl") {
		return "history"
	}
	base := filepath.Base(norm)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base != "" && base != "." && base != "/" {
		return base
	}
	return "unknown-session"
}

func payloadString(ev analysis.SessionEvent, key string) string {
	return stringField(ev.Payload, key)
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
