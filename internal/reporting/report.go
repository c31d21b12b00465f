// Package reporting renders analytics results as Markdown and CSV files.
package reporting

import (
	"sort"
	"time"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/metrics"
	"trade-analytics-lab/internal/validation"
)

// Report is the complete material for one generated report.
type Report struct {
	// Metadata
	Title       string
	GeneratedAt time.Time
	Source      string
	SnapshotID  string
	ShortID     string

	// Data summary
	Summary DataSummary

	// Per-group-key metric tables, in the order they were requested.
	Tables []MetricsTable

	// Accepted records backing the report, for the trades export.
	Trades []*domain.TradeRecord

	// Rejection audit rows.
	Rejections []validation.Rejection

	// Equity curve over all closed trades; empty when not requested.
	Equity []metrics.EquityPoint
}

// DataSummary describes the dataset the report covers.
type DataSummary struct {
	Accepted  int
	Rejected  int
	Open      int
	Closed    int
	DateStart time.Time // zero when the dataset is empty
	DateEnd   time.Time
}

// MetricsTable is one grouped aggregation rendered as a table.
type MetricsTable struct {
	Key  metrics.GroupKey
	Rows []MetricRow
}

// MetricRow is one group's metrics, keyed by its label.
type MetricRow struct {
	Label string
	Set   *metrics.MetricSet
}

// BuildTable flattens one aggregation result into rows sorted by label, so
// rendering is deterministic regardless of map iteration order.
func BuildTable(key metrics.GroupKey, sets map[string]*metrics.MetricSet) MetricsTable {
	rows := make([]MetricRow, 0, len(sets))
	for label, set := range sets {
		rows = append(rows, MetricRow{Label: label, Set: set})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Label < rows[j].Label
	})
	return MetricsTable{Key: key, Rows: rows}
}

// labelHeading names the label column for a group kind.
func labelHeading(key metrics.GroupKey) string {
	switch key.Kind {
	case metrics.GroupByStrategy:
		return "Strategy"
	case metrics.GroupByPairAndStrategy:
		return "Pair|Strategy"
	case metrics.GroupByTimeBucket:
		return "Bucket (UTC)"
	default:
		return "Pair"
	}
}

// sectionHeading names a table section for a group key.
func sectionHeading(key metrics.GroupKey) string {
	switch key.Kind {
	case metrics.GroupByStrategy:
		return "Metrics by Strategy"
	case metrics.GroupByPairAndStrategy:
		return "Metrics by Pair and Strategy"
	case metrics.GroupByTimeBucket:
		return "Metrics by Time Bucket (" + key.BucketInterval.String() + ")"
	default:
		return "Metrics by Pair"
	}
}
