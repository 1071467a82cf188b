package analysis

import (
	"fmt"
	"sort"
	"time"
)

// OrderedEvent is an event paired with its position in the source log and
// its payload decoded once.
type OrderedEvent struct {
	Index   int
	TsMs    int64
	Event   SessionEvent
	Variant Variant
}

// SortEvents orders events by timestamp, then by original index. Source
// order is not trusted.
func SortEvents(events []SessionEvent) []OrderedEvent {
	out := make([]OrderedEvent, len(events))
	for i, ev := range events {
		out[i] = OrderedEvent{Index: i, TsMs: EventTimeMs(ev), Event: ev, Variant: ev.Variant()}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TsMs != out[j].TsMs {
			return out[i].TsMs < out[j].TsMs
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Reconstruct extracts the user/assistant/reasoning transcript. It reads the
// events directly, so text is never clipped the way timeline previews are.
func Reconstruct(events []OrderedEvent) []ConversationItem {
	out := make([]ConversationItem, 0, len(events)/2)
	for _, oe := range events {
		role, body, ok := conversational(oe.Variant)
		if !ok || body == "" {
			continue
		}
		out = append(out, ConversationItem{
			Key:  EventKey(oe.Index, oe.Event),
			TsMs: oe.TsMs,
			Role: role,
			Text: body,
		})
	}
	return out
}

func conversational(v Variant) (Role, string, bool) {
	switch v := v.(type) {
	case UserMessage:
		return RoleUser, v.Text, true
	case AgentMessage:
		return RoleAssistant, v.Text, true
	case AgentReasoning:
		return RoleReasoning, v.Text, true
	case ResponseMessage:
		switch Role(v.Role) {
		case RoleUser, RoleAssistant:
			return Role(v.Role), v.Text, true
		}
	case Reasoning:
		return RoleReasoning, v.Text(), true
	}
	return "", "", false
}

// dedupeMessages drops user/assistant messages whose role and normalized text
// match an already kept message within window. The event_msg and
// response_item encodings of one message are the usual source of these.
func dedupeMessages(events []OrderedEvent, window time.Duration) ([]OrderedEvent, []Anomaly) {
	seen := make(map[string][]int64)
	kept := make([]OrderedEvent, 0, len(events))
	var anomalies []Anomaly
	windowMs := window.Milliseconds()

	for _, oe := range events {
		role, body, ok := conversational(oe.Variant)
		if !ok || role == RoleReasoning || body == "" {
			kept = append(kept, oe)
			continue
		}
		key := string(role) + "\x00" + normalizeContent(body)
		dup := false
		for _, ts := range seen[key] {
			if absMs(oe.TsMs-ts) <= windowMs {
				dup = true
				break
			}
		}
		if dup {
			anomalies = append(anomalies, Anomaly{
				Index:   oe.Index,
				Kind:    AnomalyDuplicateMessage,
				Message: fmt.Sprintf("%s message repeats an earlier one; dropped", role),
			})
			continue
		}
		seen[key] = append(seen[key], oe.TsMs)
		kept = append(kept, oe)
	}
	return kept, anomalies
}

func absMs(d int64) int64 {
	if d < 0 {
		return -d
	}
	return d
}
