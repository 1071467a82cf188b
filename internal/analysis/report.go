package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SessionSummary is one per-session row for report charts.
type SessionSummary struct {
	SessionID    string `json:"sessionId"`
	Cwd          string `json:"cwd,omitempty"`
	Timestamp    int64  `json:"timestamp"`
	Risk         int    `json:"risk"`
	Findings     int    `json:"findings"`
	FindingsHigh int    `json:"findingsHigh"`
	Tokens       int64  `json:"tokens"`
	Err          string `json:"error,omitempty"`
}

type ReportSummary struct {
	TotalSessions int              `json:"totalSessions"`
	TotalFindings int              `json:"totalFindings"`
	FindingsHigh  int              `json:"findingsHigh"`
	TotalTokens   int64            `json:"totalTokens"`
	MaxRisk       int              `json:"maxRisk"`
	Sessions      []SessionSummary `json:"sessions"`
}

type SessionResult struct {
	SessionID string           `json:"sessionId"`
	Analysis  *SessionAnalysis `json:"analysis,omitempty"`
	Err       error            `json:"-"`
	Error     string           `json:"error,omitempty"`
}

type ReportAnalysis struct {
	Summary  ReportSummary   `json:"summary"`
	Sessions []SessionResult `json:"sessions"`
}

// Summarize computes report KPIs without running the full session analysis.
func (a *Analyzer) Summarize(r Report) ReportSummary {
	rows := make([]SessionSummary, len(r.Sessions))
	for i, s := range r.Sessions {
		rows[i] = a.summarizeSession(s)
	}
	return fold(rows)
}

// AnalyzeReport analyzes every session and folds the results into KPIs.
// Sessions are independent; with Workers > 1 they run in parallel. A session
// with a shape error gets an error row and the rest still analyze. The only
// error returned is ctx's.
func (a *Analyzer) AnalyzeReport(ctx context.Context, r Report) (ReportAnalysis, error) {
	results := make([]SessionResult, len(r.Sessions))
	rows := make([]SessionSummary, len(r.Sessions))

	g, ctx := errgroup.WithContext(ctx)
	workers := a.opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := range r.Sessions {
		i := i
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := r.Sessions[i]
			res := SessionResult{SessionID: s.SessionID}
			if sa, err := a.AnalyzeSession(s); err != nil {
				res.Err = err
				res.Error = err.Error()
			} else {
				res.Analysis = &sa
			}
			results[i] = res
			rows[i] = a.summarizeSession(s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ReportAnalysis{}, err
	}
	if err := ctx.Err(); err != nil {
		return ReportAnalysis{}, err
	}
	return ReportAnalysis{Summary: fold(rows), Sessions: results}, nil
}

// RiskScore is a placeholder heuristic: finding count times a fixed weight.
// It is not a calibrated risk model.
func RiskScore(findings, weight int) int {
	return findings * weight
}

// summarizeSession sums total_token_usage.total_tokens over token_count
// snapshots. The snapshots are cumulative, so the sum overstates usage;
// SessionAnalysis.LastTokenTotal is the exact figure.
func (a *Analyzer) summarizeSession(s Session) SessionSummary {
	row := SessionSummary{SessionID: s.SessionID, Cwd: s.Cwd}
	if err := s.Err(); err != nil {
		row.Err = err.Error()
		return row
	}
	generated, hasGenerated := ParseTimestampMs(s.GeneratedAt)
	if hasGenerated {
		row.Timestamp = generated
	}

	for _, oe := range SortEvents(s.Events) {
		ev := oe.Event
		if !hasGenerated && oe.TsMs > 0 && (row.Timestamp == 0 || oe.TsMs < row.Timestamp) {
			row.Timestamp = oe.TsMs
		}
		row.Findings += len(ev.Findings)
		for _, f := range ev.Findings {
			if f.Severity.IsHigh() {
				row.FindingsHigh++
			}
		}
		tc, ok := oe.Variant.(TokenCount)
		if !ok || (tc.FromResponseItem && !a.opts.IncludeResponseItemTokens) {
			continue
		}
		if tc.HasTotal {
			row.Tokens += tc.Total.TotalTokens
		}
	}
	row.Risk = RiskScore(row.Findings, a.opts.RiskWeight)
	return row
}

func fold(rows []SessionSummary) ReportSummary {
	sum := ReportSummary{TotalSessions: len(rows), Sessions: rows}
	if sum.Sessions == nil {
		sum.Sessions = []SessionSummary{}
	}
	for _, row := range rows {
		sum.TotalFindings += row.Findings
		sum.FindingsHigh += row.FindingsHigh
		sum.TotalTokens += row.Tokens
		if row.Risk > sum.MaxRisk {
			sum.MaxRisk = row.Risk
		}
	}
	return sum
}
