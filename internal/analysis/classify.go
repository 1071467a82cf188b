package analysis

import (
	"fmt"
	"strconv"
)

// PreviewLimit bounds TimelineItem.Preview. Conversation items keep full text.
const PreviewLimit = 280

// EventKey identifies an event within its session.
func EventKey(index int, ev SessionEvent) string {
	typ := ev.Type
	if typ == "" {
		typ = "unknown"
	}
	return strconv.Itoa(index) + ":" + typ
}

// EventTimeMs returns the event timestamp in Unix milliseconds, or 0.
func EventTimeMs(ev SessionEvent) int64 {
	ms, _ := ParseTimestampMs(ev.Timestamp)
	return ms
}

// Classify maps one event to a timeline item. It returns nil for events that
// are kept off the timeline (token counts).
func Classify(ev SessionEvent, index int) *TimelineItem {
	return classifyOrdered(OrderedEvent{Index: index, TsMs: EventTimeMs(ev), Event: ev, Variant: ev.Variant()})
}

func classifyOrdered(oe OrderedEvent) *TimelineItem {
	ev := oe.Event
	item := &TimelineItem{
		Key:      EventKey(oe.Index, ev),
		TsMs:     oe.TsMs,
		Findings: len(ev.Findings),
	}

	switch v := oe.Variant.(type) {
	case SessionMeta:
		item.Category = CategoryMeta
		item.Title = "Session Started"
		item.Subtitle = firstNonEmpty(v.Originator, v.Source)
		item.Preview = v.Cwd
	case TurnContext:
		item.Category = CategoryMeta
		item.Title = "Context Update"
		item.Subtitle = v.Model
		item.Preview = v.Cwd
	case UserMessage:
		item.Category = CategoryMessages
		item.Title = "User"
		item.Preview = preview(v.Text)
	case AgentMessage:
		item.Category = CategoryMessages
		item.Title = "Assistant"
		item.Preview = preview(v.Text)
	case AgentReasoning:
		item.Category = CategoryReasoning
		item.Title = "Reasoning"
		item.Preview = preview(v.Text)
	case TokenCount:
		return nil
	case OtherEventMsg:
		item.Category = CategoryOther
		item.Title = firstNonEmpty(v.SubType, ev.Type)
		item.Preview = preview(v.Text)
	case ResponseMessage:
		switch Role(v.Role) {
		case RoleUser:
			item.Category = CategoryMessages
			item.Title = "User"
		case RoleAssistant:
			item.Category = CategoryMessages
			item.Title = "Assistant"
		default:
			item.Category = CategoryOther
			item.Title = fmt.Sprintf("Message (%s)", firstNonEmpty(v.Role, "unknown"))
		}
		item.Preview = preview(v.Text)
	case ToolCallStart:
		item.Category = CategoryTools
		item.Title = "Used Tool: " + firstNonEmpty(v.Name, "unknown")
		item.Subtitle = v.CallID
		item.Preview = preview(v.Input)
	case ToolCallResult:
		item.Category = CategoryTools
		item.Title = "Tool Output"
		item.Subtitle = v.CallID
		item.Preview = preview(v.Output)
	case GhostSnapshot:
		item.Category = CategoryFiles
		item.Title = "File Snapshot"
		item.Subtitle = v.CommitID
		if n := len(v.UntrackedFiles); n > 0 {
			item.Preview = fmt.Sprintf("%d untracked files", n)
		}
	case Reasoning:
		item.Category = CategoryReasoning
		item.Title = "Reasoning"
		item.Preview = preview(v.Text())
	case OtherResponseItem:
		item.Category = CategoryOther
		item.Title = firstNonEmpty(v.SubType, ev.Type)
		item.Preview = preview(v.Text)
	default:
		item.Category = CategoryOther
		item.Title = firstNonEmpty(ev.Type, "unknown")
	}
	return item
}

func preview(s string) string {
	return truncate(oneLine(s), PreviewLimit)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
