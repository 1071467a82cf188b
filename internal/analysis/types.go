package analysis

// Report is a normalized log document: an ordered list of sessions.
type Report struct {
	Meta     map[string]any `json:"meta,omitempty"`
	Sessions []Session      `json:"sessions"`
}

type Session struct {
	SessionID   string         `json:"sessionId"`
	Cwd         string         `json:"cwd,omitempty"`
	GeneratedAt string         `json:"generatedAt,omitempty"`
	Events      []SessionEvent `json:"events"`

	// shapeErr is set by Normalize when the wire events field was not a list.
	shapeErr error
}

// Err reports whether the session could not be decoded into an event list.
func (s Session) Err() error {
	return s.shapeErr
}

type SessionEvent struct {
	Timestamp string         `json:"timestamp,omitempty"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Findings  []Finding      `json:"findings,omitempty"`
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsHigh is true for high and critical findings.
func (s Severity) IsHigh() bool {
	return s == SeverityHigh || s == SeverityCritical
}

type Finding struct {
	RuleID   string   `json:"ruleId,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Snippet  string   `json:"snippet,omitempty"`
}

type Category string

const (
	CategoryMessages  Category = "messages"
	CategoryReasoning Category = "reasoning"
	CategoryTools     Category = "tools"
	CategoryTokens    Category = "tokens"
	CategoryMeta      Category = "meta"
	CategoryFiles     Category = "files"
	CategoryOther     Category = "other"
)

type TimelineItem struct {
	Key      string   `json:"key"`
	TsMs     int64    `json:"tsMs"`
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Preview  string   `json:"preview,omitempty"`
	Findings int      `json:"findings,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleReasoning Role = "reasoning"
)

type ConversationItem struct {
	Key  string `json:"key"`
	TsMs int64  `json:"tsMs"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type ToolStatus string

const (
	ToolCalled    ToolStatus = "called"
	ToolCompleted ToolStatus = "completed"
)

type ToolCall struct {
	CallID      string     `json:"callId"`
	Name        string     `json:"name"`
	Kind        string     `json:"kind"`
	TsMs        int64      `json:"tsMs"`
	Status      ToolStatus `json:"status"`
	Input       string     `json:"input,omitempty"`
	OutputRaw   string     `json:"outputRaw,omitempty"`
	CompletedMs int64      `json:"completedMs,omitempty"`
}

// DurationMs is the time between call start and result, or 0 while pending.
func (c ToolCall) DurationMs() int64 {
	if c.Status != ToolCompleted || c.CompletedMs < c.TsMs {
		return 0
	}
	return c.CompletedMs - c.TsMs
}

type TokenUsage struct {
	InputTokens           int64 `json:"input_tokens,omitempty"`
	CachedInputTokens     int64 `json:"cached_input_tokens,omitempty"`
	OutputTokens          int64 `json:"output_tokens,omitempty"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens,omitempty"`
	TotalTokens           int64 `json:"total_tokens,omitempty"`
}

type TokenPoint struct {
	TsMs               int64      `json:"tsMs"`
	Total              TokenUsage `json:"total"`
	Last               TokenUsage `json:"last"`
	ModelContextWindow int64      `json:"modelContextWindow,omitempty"`
}

type ModelUsage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type TurnContextRecord struct {
	Key            string `json:"key"`
	TsMs           int64  `json:"tsMs"`
	Model          string `json:"model,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
	ApprovalPolicy string `json:"approvalPolicy,omitempty"`
	SandboxPolicy  string `json:"sandboxPolicy,omitempty"`
	Effort         string `json:"effort,omitempty"`
}

// FileEdit is one ghost snapshot; snapshots are not diffed.
type FileEdit struct {
	Key            string   `json:"key"`
	TsMs           int64    `json:"tsMs"`
	CommitID       string   `json:"commitId,omitempty"`
	ParentID       string   `json:"parentId,omitempty"`
	UntrackedFiles []string `json:"untrackedFiles,omitempty"`
}

type EventFinding struct {
	Key       string `json:"key"`
	TsMs      int64  `json:"tsMs"`
	EventType string `json:"eventType"`
	Finding
}

type AnomalyKind string

const (
	AnomalyDuplicateCall    AnomalyKind = "duplicate_call"
	AnomalyOrphanResult     AnomalyKind = "orphan_result"
	AnomalyMissingCallID    AnomalyKind = "missing_call_id"
	AnomalyDuplicateMessage AnomalyKind = "duplicate_message"
)

type Anomaly struct {
	Index   int         `json:"index"`
	Kind    AnomalyKind `json:"kind"`
	CallID  string      `json:"callId,omitempty"`
	Message string      `json:"message"`
}

type SessionAnalysis struct {
	SessionID             string              `json:"sessionId"`
	Timeline              []TimelineItem      `json:"timeline"`
	Conversation          []ConversationItem  `json:"conversation"`
	ToolCalls             []ToolCall          `json:"toolCalls"`
	TokenPoints           []TokenPoint        `json:"tokenPoints"`
	Models                []ModelUsage        `json:"models"`
	TurnContexts          []TurnContextRecord `json:"turnContexts"`
	FileEdits             []FileEdit          `json:"fileEdits"`
	Findings              []EventFinding      `json:"findings"`
	FindingsHigh          int                 `json:"findingsHigh"`
	LastTokenTotal        TokenUsage          `json:"lastTokenTotal"`
	MaxModelContextWindow int64               `json:"maxModelContextWindow"`
	RateLimits            map[string]any      `json:"rateLimits,omitempty"`
	Anomalies             []Anomaly           `json:"anomalies,omitempty"`
}
