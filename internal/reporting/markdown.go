package reporting

import (
	"fmt"
	"strings"
	"time"

	"trade-analytics-lab/internal/metrics"
)

// RenderMarkdown renders the report as a Markdown document.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Source: %s | Snapshot: %s (`%s`)\n\n", r.Source, r.ShortID, r.SnapshotID))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Accepted Records | %d |\n", r.Summary.Accepted))
	sb.WriteString(fmt.Sprintf("| Rejected Records | %d |\n", r.Summary.Rejected))
	sb.WriteString(fmt.Sprintf("| Closed Trades | %d |\n", r.Summary.Closed))
	sb.WriteString(fmt.Sprintf("| Open Positions | %d |\n", r.Summary.Open))
	if !r.Summary.DateStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", r.Summary.DateStart.UTC().Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", r.Summary.DateEnd.UTC().Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	// Metric tables
	if len(r.Tables) > 0 {
		for _, table := range r.Tables {
			renderTable(&sb, table)
		}
	} else {
		sb.WriteString("## Metrics\n\nNo metric tables available.\n\n")
	}

	// Rejections
	sb.WriteString("## Rejections\n\n")
	if len(r.Rejections) > 0 {
		sb.WriteString("| Trade ID | Field | Reason | Detail | Line |\n")
		sb.WriteString("|----------|-------|--------|--------|------|\n")
		for _, rej := range r.Rejections {
			id := "-"
			if rej.Record != nil && rej.Record.TradeID != "" {
				id = rej.Record.TradeID
			}
			line := "-"
			if rej.Line > 0 {
				line = fmt.Sprintf("%d", rej.Line)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				mdCell(id), rej.Field, rej.Reason, mdCell(rej.Detail), line))
		}
	} else {
		sb.WriteString("No records were rejected.\n")
	}
	sb.WriteString("\n")

	// Equity curve
	if len(r.Equity) > 0 {
		last := r.Equity[len(r.Equity)-1]
		sb.WriteString("## Equity Curve\n\n")
		sb.WriteString(fmt.Sprintf("%d points exported to %s; final cumulative net P&L: %s\n\n",
			len(r.Equity), equityFile, last.Cumulative.String()))
	}

	return sb.String()
}

// renderTable writes one grouped metrics table.
func renderTable(sb *strings.Builder, table MetricsTable) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", sectionHeading(table.Key)))
	if len(table.Rows) == 0 {
		sb.WriteString("No trades in this grouping.\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("| %s | Closed | Open | Wins | Losses | Zero | Win Rate | Gross PnL | Net PnL | Fees | Max DD | Max DD %% | Avg PnL | Avg Holding |\n",
		labelHeading(table.Key)))
	sb.WriteString("|-------|--------|------|------|--------|------|----------|-----------|---------|------|--------|----------|---------|-------------|\n")
	for _, row := range table.Rows {
		set := row.Set
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			mdCell(row.Label),
			set.ClosedTrades, set.OpenPositions,
			set.Wins, set.Losses, set.ZeroPnL,
			set.WinRate.String(),
			set.GrossPnL.String(), set.NetPnL.String(), set.TotalFees.String(),
			set.MaxDrawdown.String(), set.MaxDrawdownPct.String(),
			fmtAvgPnL(set), fmtAvgHolding(set)))
	}
	sb.WriteString("\n")
}

// mdCell escapes pipe characters so combined labels like "BTC-USD|sma-cross"
// do not break the table layout.
func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func fmtAvgPnL(set *metrics.MetricSet) string {
	if set.AvgPnL == nil {
		return "-"
	}
	return set.AvgPnL.String()
}

func fmtAvgHolding(set *metrics.MetricSet) string {
	if set.AvgHoldingDuration == nil {
		return "-"
	}
	return set.AvgHoldingDuration.String()
}
