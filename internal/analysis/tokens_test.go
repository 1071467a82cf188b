package analysis

import (
	"reflect"
	"testing"
)

func TestTokenAggregator_MaximaAndSeries(t *testing.T) {
	var agg TokenAggregator
	agg.Add(1000, TokenCount{HasTotal: true, Total: TokenUsage{TotalTokens: 100}, ModelContextWindow: 200000})
	agg.Add(2000, TokenCount{RateLimits: map[string]any{"primary": map[string]any{"used_percent": 12.5}}})
	agg.Add(3000, TokenCount{HasTotal: true, Total: TokenUsage{TotalTokens: 250, InputTokens: 200}, Last: TokenUsage{TotalTokens: 150}, ModelContextWindow: 272000})
	agg.Add(4000, TokenCount{HasTotal: true, Total: TokenUsage{TotalTokens: 250, InputTokens: 999}, ModelContextWindow: 128000})

	pts := agg.Points()
	if len(pts) != 3 {
		t.Fatalf("snapshot without a total must not add a point, got %d points", len(pts))
	}
	if pts[1].Last.TotalTokens != 150 || pts[1].TsMs != 3000 {
		t.Fatalf("unexpected point %#v", pts[1])
	}
	if got := agg.LastTotal(); got.TotalTokens != 250 || got.InputTokens != 200 {
		t.Fatalf("first snapshot reaching the max should be kept, got %#v", got)
	}
	if agg.MaxContextWindow() != 272000 {
		t.Fatalf("maxContextWindow=%d", agg.MaxContextWindow())
	}
	want := map[string]any{"primary": map[string]any{"used_percent": 12.5}}
	if !reflect.DeepEqual(agg.RateLimits(), want) {
		t.Fatalf("rate limits=%#v", agg.RateLimits())
	}
}

func TestTokenAggregator_Empty(t *testing.T) {
	var agg TokenAggregator
	if len(agg.Points()) != 0 || agg.LastTotal() != (TokenUsage{}) || agg.MaxContextWindow() != 0 || agg.RateLimits() != nil {
		t.Fatalf("zero aggregator should report nothing")
	}
}

func TestTokenCount_DecodesInfo(t *testing.T) {
	ev := eventMsg(1, map[string]any{
		"type": "token_count",
		"info": map[string]any{
			"total_token_usage": map[string]any{"input_tokens": 10, "cached_input_tokens": 4, "output_tokens": 6, "reasoning_output_tokens": 2, "total_tokens": 16},
			"last_token_usage":  map[string]any{"total_tokens": 16},
		},
		"rate_limits": map[string]any{"secondary": nil},
	})
	tc, ok := ev.Variant().(TokenCount)
	if !ok {
		t.Fatalf("expected TokenCount, got %T", ev.Variant())
	}
	want := TokenUsage{InputTokens: 10, CachedInputTokens: 4, OutputTokens: 6, ReasoningOutputTokens: 2, TotalTokens: 16}
	if !tc.HasTotal || tc.Total != want || tc.Last.TotalTokens != 16 || tc.FromResponseItem {
		t.Fatalf("unexpected decode %#v", tc)
	}

	empty := eventMsg(1, map[string]any{"type": "token_count", "info": nil})
	if tc := empty.Variant().(TokenCount); tc.HasTotal {
		t.Fatalf("null info has no total")
	}
}
