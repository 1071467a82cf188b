package analysis

import "strings"

// Top-level event types.
const (
	TypeSessionMeta  = "session_meta"
	TypeTurnContext  = "turn_context"
	TypeEventMsg     = "event_msg"
	TypeResponseItem = "response_item"
)

// Variant is the decoded form of a SessionEvent. The set of implementations
// is closed; Classify switches over it with an explicit default arm.
type Variant interface {
	variant()
}

type SessionMeta struct {
	ID         string
	Cwd        string
	Originator string
	Source     string
	CLIVersion string
}

type TurnContext struct {
	Model          string
	Cwd            string
	ApprovalPolicy string
	SandboxPolicy  string
	Effort         string
}

type UserMessage struct{ Text string }

type AgentMessage struct{ Text string }

type AgentReasoning struct{ Text string }

// TokenCount is a cumulative usage snapshot. FromResponseItem marks payloads
// found under response_item rather than event_msg.
type TokenCount struct {
	Total              TokenUsage
	HasTotal           bool
	Last               TokenUsage
	ModelContextWindow int64
	RateLimits         map[string]any
	FromResponseItem   bool
}

// OtherEventMsg is an event_msg whose sub-type has no dedicated handling.
type OtherEventMsg struct {
	SubType string
	Text    string
}

type ResponseMessage struct {
	Role string
	Text string
}

type ToolCallStart struct {
	CallID string
	Name   string
	Input  string
	Custom bool
}

type ToolCallResult struct {
	CallID string
	Output string
	Custom bool
}

type GhostSnapshot struct {
	CommitID       string
	ParentID       string
	UntrackedFiles []string
}

type Reasoning struct {
	Summary []string
}

// Text joins the summary fragments.
func (r Reasoning) Text() string {
	return strings.TrimSpace(strings.Join(r.Summary, "\n\n"))
}

// OtherResponseItem is a response_item whose sub-type has no dedicated handling.
type OtherResponseItem struct {
	SubType string
	Text    string
}

// Unknown is any event whose top-level type is not recognized.
type Unknown struct {
	Type string
}

func (SessionMeta) variant()       {}
func (TurnContext) variant()       {}
func (UserMessage) variant()       {}
func (AgentMessage) variant()      {}
func (AgentReasoning) variant()    {}
func (TokenCount) variant()        {}
func (OtherEventMsg) variant()     {}
func (ResponseMessage) variant()   {}
func (ToolCallStart) variant()     {}
func (ToolCallResult) variant()    {}
func (GhostSnapshot) variant()     {}
func (Reasoning) variant()         {}
func (OtherResponseItem) variant() {}
func (Unknown) variant()           {}

// Variant decodes the loosely typed payload according to type and payload.type.
func (e SessionEvent) Variant() Variant {
	p := e.Payload
	switch e.Type {
	case TypeSessionMeta:
		return SessionMeta{
			ID:         str(p["id"]),
			Cwd:        str(p["cwd"]),
			Originator: str(p["originator"]),
			Source:     str(p["source"]),
			CLIVersion: str(p["cli_version"]),
		}
	case TypeTurnContext:
		return TurnContext{
			Model:          str(p["model"]),
			Cwd:            str(p["cwd"]),
			ApprovalPolicy: str(p["approval_policy"]),
			SandboxPolicy:  sandboxMode(p["sandbox_policy"]),
			Effort:         str(p["effort"]),
		}
	case TypeEventMsg:
		return decodeEventMsg(p)
	case TypeResponseItem:
		return decodeResponseItem(p)
	default:
		return Unknown{Type: e.Type}
	}
}

func decodeEventMsg(p map[string]any) Variant {
	sub := str(p["type"])
	switch sub {
	case "user_message":
		return UserMessage{Text: text(p["message"])}
	case "agent_message":
		return AgentMessage{Text: text(p["message"])}
	case "agent_reasoning":
		return AgentReasoning{Text: text(p["text"])}
	case "token_count":
		return decodeTokenCount(p, false)
	default:
		return OtherEventMsg{SubType: sub, Text: text(lookup(p, []string{"message"}, []string{"text"}, []string{"reason"}))}
	}
}

func decodeResponseItem(p map[string]any) Variant {
	sub := str(p["type"])
	switch sub {
	case "message":
		return ResponseMessage{Role: strings.ToLower(str(p["role"])), Text: text(p["content"])}
	case "function_call":
		return ToolCallStart{CallID: str(p["call_id"]), Name: str(p["name"]), Input: raw(p["arguments"])}
	case "custom_tool_call":
		return ToolCallStart{CallID: str(p["call_id"]), Name: str(p["name"]), Input: raw(p["input"]), Custom: true}
	case "function_call_output":
		return ToolCallResult{CallID: str(p["call_id"]), Output: raw(p["output"])}
	case "custom_tool_call_output":
		return ToolCallResult{CallID: str(p["call_id"]), Output: raw(p["output"]), Custom: true}
	case "ghost_snapshot":
		commit := asMap(p["ghost_commit"])
		snap := GhostSnapshot{CommitID: str(commit["id"]), ParentID: str(commit["parent"])}
		if files, ok := commit["preexisting_untracked_files"].([]any); ok {
			for _, f := range files {
				if s := str(f); s != "" {
					snap.UntrackedFiles = append(snap.UntrackedFiles, s)
				}
			}
		}
		return snap
	case "reasoning":
		var r Reasoning
		if parts, ok := p["summary"].([]any); ok {
			for _, part := range parts {
				if s := text(part); s != "" {
					r.Summary = append(r.Summary, s)
				}
			}
		}
		return r
	case "token_count":
		return decodeTokenCount(p, true)
	default:
		return OtherResponseItem{SubType: sub, Text: text(lookup(p, []string{"content"}, []string{"output"}, []string{"text"}))}
	}
}

func decodeTokenCount(p map[string]any, fromResponseItem bool) TokenCount {
	info := asMap(p["info"])
	tc := TokenCount{FromResponseItem: fromResponseItem, RateLimits: asMap(p["rate_limits"])}
	tc.Total, tc.HasTotal = decodeUsage(asMap(info["total_token_usage"]))
	tc.Last, _ = decodeUsage(asMap(info["last_token_usage"]))
	if w, ok := integer(info["model_context_window"]); ok {
		tc.ModelContextWindow = w
	}
	return tc
}

// decodeUsage reports ok when at least one known counter is present.
func decodeUsage(m map[string]any) (TokenUsage, bool) {
	var u TokenUsage
	found := false
	for key, dst := range map[string]*int64{
		"input_tokens":            &u.InputTokens,
		"cached_input_tokens":     &u.CachedInputTokens,
		"output_tokens":           &u.OutputTokens,
		"reasoning_output_tokens": &u.ReasoningOutputTokens,
		"total_tokens":            &u.TotalTokens,
	} {
		if n, ok := integer(m[key]); ok {
			*dst = n
			found = true
		}
	}
	return u, found
}

// sandboxMode accepts either a bare string or an object with a mode field.
func sandboxMode(v any) string {
	if m := asMap(v); m != nil {
		return str(lookup(m, []string{"mode"}, []string{"type"}))
	}
	return str(v)
}
