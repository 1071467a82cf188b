package analysis

import "fmt"

// Correlator merges tool call starts and results by call id within one
// session. Records live in a dense slice in first-start order; index maps a
// call id to its slot.
type Correlator struct {
	calls     []ToolCall
	index     map[string]int
	anomalies []Anomaly
}

func NewCorrelator() *Correlator {
	return &Correlator{index: make(map[string]int)}
}

// Start records a call start. A repeated call id overwrites the earlier
// record in place (last start wins) and is reported as an anomaly.
func (c *Correlator) Start(eventIndex int, tsMs int64, v ToolCallStart) {
	if v.CallID == "" {
		c.anomalies = append(c.anomalies, Anomaly{
			Index:   eventIndex,
			Kind:    AnomalyMissingCallID,
			Message: fmt.Sprintf("tool call %q has no call id; not correlated", v.Name),
		})
		return
	}
	call := ToolCall{
		CallID: v.CallID,
		Name:   v.Name,
		Kind:   toolKind(v.Custom),
		TsMs:   tsMs,
		Status: ToolCalled,
		Input:  v.Input,
	}
	if slot, ok := c.index[v.CallID]; ok {
		prev := c.calls[slot]
		c.anomalies = append(c.anomalies, Anomaly{
			Index:   eventIndex,
			Kind:    AnomalyDuplicateCall,
			CallID:  v.CallID,
			Message: fmt.Sprintf("call id reused (was %q, status %s); keeping latest start", prev.Name, prev.Status),
		})
		c.calls[slot] = call
		return
	}
	c.index[v.CallID] = len(c.calls)
	c.calls = append(c.calls, call)
}

// Result completes the matching call. Results with no matching start are
// dropped and reported; it returns whether a call was matched.
func (c *Correlator) Result(eventIndex int, tsMs int64, v ToolCallResult) bool {
	slot, ok := c.index[v.CallID]
	if !ok || v.CallID == "" {
		c.anomalies = append(c.anomalies, Anomaly{
			Index:   eventIndex,
			Kind:    AnomalyOrphanResult,
			CallID:  v.CallID,
			Message: "tool output has no matching call; dropped",
		})
		return false
	}
	call := &c.calls[slot]
	call.OutputRaw = v.Output
	call.Status = ToolCompleted
	call.CompletedMs = tsMs
	return true
}

// Calls returns the correlated records in first-start order.
func (c *Correlator) Calls() []ToolCall {
	out := make([]ToolCall, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *Correlator) Anomalies() []Anomaly {
	return c.anomalies
}

func toolKind(custom bool) string {
	if custom {
		return "custom"
	}
	return "function"
}
