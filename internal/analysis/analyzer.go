// Package analysis turns a Codex agent session log into a categorized
// timeline, a conversation transcript, correlated tool calls, a token usage
// series and report-level statistics. Everything here is a synchronous,
// in-memory transformation; fetching and rendering belong to callers.
package analysis

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultRiskWeight is the per-finding multiplier of the placeholder risk score.
const DefaultRiskWeight = 10

type Options struct {
	// Logger receives correlation anomalies. Nil discards them.
	Logger *log.Logger

	// DedupeMessages drops a user/assistant message that repeats an earlier
	// one (same role and normalized text) within DedupeWindow. Off by default:
	// a log that carries both event_msg and response_item copies of a message
	// keeps both.
	DedupeMessages bool
	DedupeWindow   time.Duration

	// IncludeResponseItemTokens adds token_count payloads found under
	// response_item to per-session token sums. Off by default.
	IncludeResponseItemTokens bool

	RiskWeight int

	// Workers bounds parallel session analysis in AnalyzeReport. Values
	// below 2 analyze sequentially.
	Workers int
}

func DefaultOptions() Options {
	return Options{RiskWeight: DefaultRiskWeight, Workers: 1}
}

type Analyzer struct {
	opts   Options
	logger *log.Logger
}

func New(opts Options) *Analyzer {
	if opts.RiskWeight <= 0 {
		opts.RiskWeight = DefaultRiskWeight
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Analyzer{opts: opts, logger: logger}
}

// AnalyzeSession runs every pass over one session. It fails only when the
// session's events could not be read as a list.
func (a *Analyzer) AnalyzeSession(s Session) (SessionAnalysis, error) {
	if err := s.Err(); err != nil {
		return SessionAnalysis{}, err
	}

	out := SessionAnalysis{
		SessionID:    s.SessionID,
		Timeline:     []TimelineItem{},
		ToolCalls:    []ToolCall{},
		Models:       []ModelUsage{},
		TurnContexts: []TurnContextRecord{},
		FileEdits:    []FileEdit{},
		Findings:     []EventFinding{},
	}

	events := SortEvents(s.Events)
	if a.opts.DedupeMessages {
		var dropped []Anomaly
		events, dropped = dedupeMessages(events, a.opts.DedupeWindow)
		out.Anomalies = append(out.Anomalies, dropped...)
	}

	correlator := NewCorrelator()
	var tokens TokenAggregator
	modelSlot := make(map[string]int)

	for _, oe := range events {
		ev := oe.Event
		key := EventKey(oe.Index, ev)

		if item := classifyOrdered(oe); item != nil {
			out.Timeline = append(out.Timeline, *item)
		}

		for _, f := range ev.Findings {
			out.Findings = append(out.Findings, EventFinding{Key: key, TsMs: oe.TsMs, EventType: ev.Type, Finding: f})
			if f.Severity.IsHigh() {
				out.FindingsHigh++
			}
		}

		switch v := oe.Variant.(type) {
		case TurnContext:
			if v.Model != "" {
				if slot, ok := modelSlot[v.Model]; ok {
					out.Models[slot].Count++
				} else {
					modelSlot[v.Model] = len(out.Models)
					out.Models = append(out.Models, ModelUsage{Name: v.Model, Count: 1})
				}
			}
			out.TurnContexts = append(out.TurnContexts, TurnContextRecord{
				Key:            key,
				TsMs:           oe.TsMs,
				Model:          v.Model,
				Cwd:            v.Cwd,
				ApprovalPolicy: v.ApprovalPolicy,
				SandboxPolicy:  v.SandboxPolicy,
				Effort:         v.Effort,
			})
		case ToolCallStart:
			correlator.Start(oe.Index, oe.TsMs, v)
		case ToolCallResult:
			correlator.Result(oe.Index, oe.TsMs, v)
		case TokenCount:
			tokens.Add(oe.TsMs, v)
		case GhostSnapshot:
			out.FileEdits = append(out.FileEdits, FileEdit{
				Key:            key,
				TsMs:           oe.TsMs,
				CommitID:       v.CommitID,
				ParentID:       v.ParentID,
				UntrackedFiles: v.UntrackedFiles,
			})
		}
	}

	out.Conversation = Reconstruct(events)
	out.ToolCalls = correlator.Calls()
	out.TokenPoints = tokens.Points()
	out.LastTokenTotal = tokens.LastTotal()
	out.MaxModelContextWindow = tokens.MaxContextWindow()
	out.RateLimits = tokens.RateLimits()
	out.Anomalies = append(out.Anomalies, correlator.Anomalies()...)

	for _, an := range out.Anomalies {
		a.logger.Warn("session anomaly",
			"session", s.SessionID,
			"kind", an.Kind,
			"call_id", an.CallID,
			"index", an.Index,
			"detail", an.Message,
		)
	}
	return out, nil
}

// GroupedConversation returns the reasoning-grouped transcript of an analysis.
func (sa SessionAnalysis) GroupedConversation() []ConversationNode {
	return GroupReasoning(sa.Conversation)
}
