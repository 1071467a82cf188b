package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"codex-audit/internal/analysis"
)

const sessionColumnWidth = 38

// SummaryTable renders report KPIs followed by one row per session.
func SummaryTable(sum analysis.ReportSummary) string {
	kpis := titleStyle.Render(fmt.Sprintf(
		"sessions %d  findings %d  high %d  tokens %s  max risk %d",
		sum.TotalSessions, sum.TotalFindings, sum.FindingsHigh, humanize.Comma(sum.TotalTokens), sum.MaxRisk,
	))

	rows := make([][]string, 0, len(sum.Sessions))
	errRows := make(map[int]bool)
	for i, s := range sum.Sessions {
		if s.Err != "" {
			errRows[i] = true
			rows = append(rows, []string{ansi.Truncate(s.SessionID, sessionColumnWidth, "…"), "-", "-", "-", "-", "-", ansi.Truncate(s.Err, 48, "…")})
			continue
		}
		rows = append(rows, []string{
			ansi.Truncate(s.SessionID, sessionColumnWidth, "…"),
			formatStarted(s.Timestamp),
			strconv.Itoa(s.Risk),
			strconv.Itoa(s.Findings),
			strconv.Itoa(s.FindingsHigh),
			humanize.Comma(s.Tokens),
			ansi.Truncate(s.Cwd, 48, "…"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("SESSION", "STARTED", "RISK", "FINDINGS", "HIGH", "TOKENS", "CWD").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case errRows[row] && col == 6:
				return errorStyle
			}
			return cellStyle
		})

	return kpis + "\n" + t.Render() + "\n"
}

// TokenTable renders the per-session token series.
func TokenTable(points []analysis.TokenPoint) string {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			formatClock(p.TsMs),
			humanize.Comma(p.Total.InputTokens),
			humanize.Comma(p.Total.CachedInputTokens),
			humanize.Comma(p.Total.OutputTokens),
			humanize.Comma(p.Total.TotalTokens),
			humanize.Comma(p.Last.TotalTokens),
			contextPercent(p.Total.TotalTokens, p.ModelContextWindow),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("TIME", "INPUT", "CACHED", "OUTPUT", "TOTAL", "TURN", "CONTEXT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render() + "\n"
}

// SessionHeader is a one-line digest of a session analysis.
func SessionHeader(sa analysis.SessionAnalysis) string {
	models := make([]string, 0, len(sa.Models))
	for _, m := range sa.Models {
		models = append(models, m.Name)
	}
	parts := []string{
		"session " + sa.SessionID,
		fmt.Sprintf("%d events", len(sa.Timeline)),
		fmt.Sprintf("%d tools", len(sa.ToolCalls)),
		humanize.Comma(sa.LastTokenTotal.TotalTokens) + " tokens",
	}
	if len(models) > 0 {
		parts = append(parts, strings.Join(models, ","))
	}
	if len(sa.Anomalies) > 0 {
		parts = append(parts, fmt.Sprintf("%d anomalies", len(sa.Anomalies)))
	}
	return titleStyle.Render(strings.Join(parts, "  ")) + "\n"
}

func contextPercent(total, window int64) string {
	if window <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(total)*100/float64(window))
}

func formatStarted(ms int64) string {
	if ms <= 0 {
		return "n/a"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

func formatClock(ms int64) string {
	if ms <= 0 {
		return "--:--:--"
	}
	return time.UnixMilli(ms).UTC().Format("15:04:05")
}
