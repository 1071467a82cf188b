package analysis

// TokenAggregator folds token_count snapshots into a series plus running
// maxima. Usage is reported cumulatively, so the headline figure is the
// largest total seen, not a sum.
type TokenAggregator struct {
	points     []TokenPoint
	last       TokenUsage
	maxWindow  int64
	rateLimits map[string]any
}

// Add appends a point when the snapshot carries a total and updates maxima.
// Callers feed snapshots in timestamp order.
func (a *TokenAggregator) Add(tsMs int64, v TokenCount) {
	if v.RateLimits != nil {
		a.rateLimits = v.RateLimits
	}
	if v.ModelContextWindow > a.maxWindow {
		a.maxWindow = v.ModelContextWindow
	}
	if !v.HasTotal {
		return
	}
	if len(a.points) == 0 || v.Total.TotalTokens > a.last.TotalTokens {
		a.last = v.Total
	}
	a.points = append(a.points, TokenPoint{
		TsMs:               tsMs,
		Total:              v.Total,
		Last:               v.Last,
		ModelContextWindow: v.ModelContextWindow,
	})
}

func (a *TokenAggregator) Points() []TokenPoint {
	out := make([]TokenPoint, len(a.points))
	copy(out, a.points)
	return out
}

// LastTotal is the snapshot with the greatest total_tokens.
func (a *TokenAggregator) LastTotal() TokenUsage {
	return a.last
}

func (a *TokenAggregator) MaxContextWindow() int64 {
	return a.maxWindow
}

// RateLimits is the most recent rate_limits object, passed through verbatim.
func (a *TokenAggregator) RateLimits() map[string]any {
	return a.rateLimits
}
