package analysis

import "testing"

func TestCorrelate_ScenarioB_CallThenResult(t *testing.T) {
	sa := mustAnalyze(t, functionCall(1, "c1", "grep"), functionOutput(2, "c1", "match"))

	if len(sa.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(sa.ToolCalls))
	}
	call := sa.ToolCalls[0]
	if call.CallID != "c1" || call.Name != "grep" || call.Status != ToolCompleted || call.OutputRaw != "match" {
		t.Fatalf("unexpected call %#v", call)
	}
	if call.Input != `{"pattern":"x"}` || call.Kind != "function" {
		t.Fatalf("unexpected input/kind %q/%q", call.Input, call.Kind)
	}
	if call.DurationMs() != 1000 {
		t.Fatalf("duration=%d want 1000", call.DurationMs())
	}
	if len(sa.Anomalies) != 0 {
		t.Fatalf("unexpected anomalies %#v", sa.Anomalies)
	}
}

func TestCorrelate_ScenarioC_OrphanResult(t *testing.T) {
	sa := mustAnalyze(t, functionOutput(1, "zz", "lost"))

	if len(sa.ToolCalls) != 0 {
		t.Fatalf("orphan output must not create a call, got %#v", sa.ToolCalls)
	}
	if len(sa.Timeline) != 1 || sa.Timeline[0].Title != "Tool Output" {
		t.Fatalf("orphan output still appears on the timeline, got %#v", sa.Timeline)
	}
	if len(sa.Anomalies) != 1 || sa.Anomalies[0].Kind != AnomalyOrphanResult || sa.Anomalies[0].CallID != "zz" {
		t.Fatalf("expected orphan anomaly, got %#v", sa.Anomalies)
	}
}

func TestCorrelate_PendingCallStaysCalled(t *testing.T) {
	sa := mustAnalyze(t, functionCall(1, "c1", "sleep"))
	if sa.ToolCalls[0].Status != ToolCalled || sa.ToolCalls[0].DurationMs() != 0 {
		t.Fatalf("unexpected pending call %#v", sa.ToolCalls[0])
	}
}

func TestCorrelator_DuplicateStartLastWins(t *testing.T) {
	c := NewCorrelator()
	c.Start(0, 1000, ToolCallStart{CallID: "c1", Name: "first"})
	c.Start(1, 2000, ToolCallStart{CallID: "c2", Name: "other"})
	if !c.Result(2, 2500, ToolCallResult{CallID: "c1", Output: "old"}) {
		t.Fatalf("result should match c1")
	}
	c.Start(3, 3000, ToolCallStart{CallID: "c1", Name: "second", Custom: true})

	calls := c.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	got := calls[0]
	if got.Name != "second" || got.Status != ToolCalled || got.OutputRaw != "" || got.TsMs != 3000 || got.Kind != "custom" {
		t.Fatalf("latest start should replace the slot, got %#v", got)
	}
	if calls[1].CallID != "c2" {
		t.Fatalf("slot order changed: %#v", calls)
	}
	an := c.Anomalies()
	if len(an) != 1 || an[0].Kind != AnomalyDuplicateCall || an[0].Index != 3 {
		t.Fatalf("expected duplicate_call anomaly, got %#v", an)
	}
}

func TestCorrelator_MissingCallID(t *testing.T) {
	c := NewCorrelator()
	c.Start(0, 0, ToolCallStart{Name: "shell"})
	if c.Result(1, 0, ToolCallResult{}) {
		t.Fatalf("empty call id must not match")
	}
	if len(c.Calls()) != 0 {
		t.Fatalf("call without id must not be recorded")
	}
	an := c.Anomalies()
	if len(an) != 2 || an[0].Kind != AnomalyMissingCallID || an[1].Kind != AnomalyOrphanResult {
		t.Fatalf("unexpected anomalies %#v", an)
	}
}

func TestCorrelator_CallsReturnsCopy(t *testing.T) {
	c := NewCorrelator()
	c.Start(0, 0, ToolCallStart{CallID: "c1", Name: "ls"})
	calls := c.Calls()
	calls[0].Name = "mutated"
	if c.Calls()[0].Name != "ls" {
		t.Fatalf("Calls must not alias internal state")
	}
}
