package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/metrics"
)

// tradeColumns is the canonical column set understood by the CSV source
// adapter, so an export can be loaded back unchanged.
var tradeColumns = []string{
	"trade_id", "pair", "strategy", "side", "entry_time", "exit_time",
	"entry_price", "exit_price", "quantity", "fees",
}

// RenderMetricsCSV renders one grouped metrics table as CSV. Optional metrics
// render as empty cells.
func RenderMetricsCSV(table MetricsTable) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"label", "closed_trades", "wins", "losses", "zero_pnl", "open_positions",
		"win_rate", "gross_pnl", "net_pnl", "total_fees",
		"max_drawdown", "max_drawdown_pct", "avg_pnl", "avg_holding_duration",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write metrics header: %w", err)
	}

	for _, row := range table.Rows {
		set := row.Set
		avgPnL := ""
		if set.AvgPnL != nil {
			avgPnL = set.AvgPnL.String()
		}
		avgHolding := ""
		if set.AvgHoldingDuration != nil {
			avgHolding = set.AvgHoldingDuration.String()
		}
		record := []string{
			row.Label,
			strconv.Itoa(set.ClosedTrades),
			strconv.Itoa(set.Wins),
			strconv.Itoa(set.Losses),
			strconv.Itoa(set.ZeroPnL),
			strconv.Itoa(set.OpenPositions),
			set.WinRate.String(),
			set.GrossPnL.String(),
			set.NetPnL.String(),
			set.TotalFees.String(),
			set.MaxDrawdown.String(),
			set.MaxDrawdownPct.String(),
			avgPnL,
			avgHolding,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write metrics row %q: %w", row.Label, err)
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}

// RenderTradesCSV renders accepted records in the canonical column order.
// Open trades leave exit_time and exit_price empty; a nil strategy renders as
// an empty cell, not as the "unlabeled" grouping placeholder.
func RenderTradesCSV(records []*domain.TradeRecord) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(tradeColumns); err != nil {
		return "", fmt.Errorf("write trades header: %w", err)
	}

	for _, rec := range records {
		strategy := ""
		if rec.Strategy != nil {
			strategy = *rec.Strategy
		}
		exitTime := ""
		if rec.ExitTime != nil {
			exitTime = rec.ExitTime.UTC().Format(time.RFC3339Nano)
		}
		exitPrice := ""
		if rec.ExitPrice != nil {
			exitPrice = rec.ExitPrice.String()
		}
		row := []string{
			rec.TradeID,
			rec.Pair,
			strategy,
			string(rec.Side),
			rec.EntryTime.UTC().Format(time.RFC3339Nano),
			exitTime,
			rec.EntryPrice.String(),
			exitPrice,
			rec.Quantity.String(),
			rec.Fees.String(),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write trade %s: %w", rec.TradeID, err)
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}

// RenderEquityCSV renders the cumulative equity curve.
func RenderEquityCSV(points []metrics.EquityPoint) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"trade_id", "exit_time", "net_pnl", "cumulative"}); err != nil {
		return "", fmt.Errorf("write equity header: %w", err)
	}
	for _, p := range points {
		row := []string{
			p.TradeID,
			p.ExitTime.UTC().Format(time.RFC3339Nano),
			p.NetPnL.String(),
			p.Cumulative.String(),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write equity point %s: %w", p.TradeID, err)
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}
