package analysis

// MinReasoningRun is the shortest run of consecutive reasoning items that is
// stacked into one group.
const MinReasoningRun = 2

type NodeKind string

const (
	NodeItem           NodeKind = "item"
	NodeReasoningGroup NodeKind = "reasoning_group"
)

// ConversationNode is either a single item or a stacked run of reasoning
// items. Groups start collapsed; single items are shown expanded.
type ConversationNode struct {
	Kind      NodeKind           `json:"kind"`
	Key       string             `json:"key"`
	Items     []ConversationItem `json:"items"`
	Collapsed bool               `json:"collapsed"`
}

// GroupReasoning collapses runs of consecutive reasoning items in one left to
// right pass. Item order is preserved.
func GroupReasoning(items []ConversationItem) []ConversationNode {
	out := make([]ConversationNode, 0, len(items))
	var run []ConversationItem

	flush := func() {
		if len(run) >= MinReasoningRun {
			out = append(out, ConversationNode{
				Kind:      NodeReasoningGroup,
				Key:       "group:" + run[0].Key,
				Items:     run,
				Collapsed: true,
			})
		} else {
			for _, it := range run {
				out = append(out, single(it))
			}
		}
		run = nil
	}

	for _, it := range items {
		if it.Role == RoleReasoning {
			run = append(run, it)
			continue
		}
		flush()
		out = append(out, single(it))
	}
	flush()
	return out
}

func single(it ConversationItem) ConversationNode {
	return ConversationNode{Kind: NodeItem, Key: it.Key, Items: []ConversationItem{it}}
}

// Flatten returns the items of nodes in order.
func Flatten(nodes []ConversationNode) []ConversationItem {
	var out []ConversationItem
	for _, n := range nodes {
		out = append(out, n.Items...)
	}
	return out
}
