package analysis

import (
	"fmt"
	"strings"
	"testing"
)

var baseTime = "2025-11-27T15:23:%02d.000Z"

func ts(sec int) string {
	return fmt.Sprintf(baseTime, sec)
}

func eventMsg(sec int, payload map[string]any) SessionEvent {
	return SessionEvent{Timestamp: ts(sec), Type: TypeEventMsg, Payload: payload}
}

func responseItem(sec int, payload map[string]any) SessionEvent {
	return SessionEvent{Timestamp: ts(sec), Type: TypeResponseItem, Payload: payload}
}

func userMsg(sec int, text string) SessionEvent {
	return eventMsg(sec, map[string]any{"type": "user_message", "message": text})
}

func agentMsg(sec int, text string) SessionEvent {
	return eventMsg(sec, map[string]any{"type": "agent_message", "message": text})
}

func reasoningMsg(sec int, text string) SessionEvent {
	return eventMsg(sec, map[string]any{"type": "agent_reasoning", "text": text})
}

func tokenCount(sec int, total int64) SessionEvent {
	return eventMsg(sec, map[string]any{
		"type": "token_count",
		"info": map[string]any{
			"total_token_usage":    map[string]any{"total_tokens": total},
			"model_context_window": int64(272000),
		},
	})
}

func functionCall(sec int, id, name string) SessionEvent {
	return responseItem(sec, map[string]any{"type": "function_call", "call_id": id, "name": name, "arguments": `{"pattern":"x"}`})
}

func functionOutput(sec int, id, output string) SessionEvent {
	return responseItem(sec, map[string]any{"type": "function_call_output", "call_id": id, "output": output})
}

func mustAnalyze(t *testing.T, events ...SessionEvent) SessionAnalysis {
	t.Helper()
	sa, err := New(DefaultOptions()).AnalyzeSession(Session{SessionID: "s1", Events: events})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return sa
}

func mustDecode(t *testing.T, doc string) Report {
	t.Helper()
	r, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return r
}
