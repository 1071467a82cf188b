package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrFormat = errors.New("unrecognized log document")
	ErrShape  = errors.New("session events are not a list")
)

// FormatError means neither accepted top-level shape was found. It is fatal
// to the whole document.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "format error: " + e.Reason
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ShapeError means one session's events field is not a list. Only that
// session is affected.
type ShapeError struct {
	SessionID string
	Got       string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape error: session %q events is %s, want list", e.SessionID, e.Got)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// Decode reads one JSON document and normalizes it.
func Decode(r io.Reader) (Report, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Report{}, &FormatError{Reason: "invalid json: " + err.Error()}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Report{}, &FormatError{Reason: "document is " + kindOf(doc) + ", want object"}
	}
	return Normalize(obj)
}

// Normalize accepts {data: {updates: [...]}} or {updates: [...]}.
func Normalize(doc map[string]any) (Report, error) {
	if doc == nil {
		return Report{}, &FormatError{Reason: "empty document"}
	}
	updates, ok := lookup(doc, []string{"data", "updates"}).([]any)
	if !ok {
		updates, ok = doc["updates"].([]any)
	}
	if !ok {
		return Report{}, &FormatError{Reason: "missing data.updates or updates list"}
	}

	report := Report{
		Meta:     asMap(doc["meta"]),
		Sessions: make([]Session, 0, len(updates)),
	}
	if report.Meta == nil {
		report.Meta = asMap(lookup(doc, []string{"data", "meta"}))
	}
	for _, u := range updates {
		report.Sessions = append(report.Sessions, decodeSession(asMap(u)))
	}
	return report, nil
}

func decodeSession(obj map[string]any) Session {
	s := Session{
		SessionID:   str(lookup(obj, []string{"sessionId"}, []string{"session_id"}, []string{"id"})),
		Cwd:         str(obj["cwd"]),
		GeneratedAt: str(obj["generatedAt"]),
	}
	switch evs := obj["events"].(type) {
	case nil:
		s.Events = []SessionEvent{}
	case []any:
		s.Events = make([]SessionEvent, 0, len(evs))
		for _, e := range evs {
			s.Events = append(s.Events, decodeEvent(asMap(e)))
		}
	default:
		s.shapeErr = &ShapeError{SessionID: s.SessionID, Got: kindOf(evs)}
	}
	return s
}

// DecodeEvent converts one wire event object. Missing or mistyped fields
// decode to their zero values.
func DecodeEvent(obj map[string]any) SessionEvent {
	return decodeEvent(obj)
}

func decodeEvent(obj map[string]any) SessionEvent {
	ev := SessionEvent{
		Timestamp: timestamp(obj["timestamp"]),
		Type:      str(obj["type"]),
		Payload:   asMap(obj["payload"]),
	}
	if list, ok := obj["findings"].([]any); ok {
		for _, f := range list {
			fm := asMap(f)
			if fm == nil {
				continue
			}
			ev.Findings = append(ev.Findings, Finding{
				RuleID:   str(fm["ruleId"]),
				Severity: Severity(strings.ToLower(str(fm["severity"]))),
				Message:  str(fm["message"]),
				Snippet:  str(fm["snippet"]),
			})
		}
	}
	return ev
}

// timestamp keeps numeric epochs exact by storing them as Unix milliseconds.
func timestamp(v any) string {
	switch v.(type) {
	case json.Number, float64, int, int64:
		if ms, ok := ParseTimestampMs(v); ok {
			return strconv.FormatInt(ms, 10)
		}
	}
	return str(v)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
