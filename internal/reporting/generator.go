package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trade-analytics-lab/internal/engine"
	"trade-analytics-lab/internal/metrics"
)

// File names emitted by Write. Metric tables use the METRICS_<KEY>.csv
// pattern derived from the group key.
const (
	reportFile = "TRADE_REPORT.md"
	tradesFile = "TRADES_EXPORT.csv"
	equityFile = "EQUITY_CURVE.csv"
)

// Generator assembles reports and writes them into an output directory.
type Generator struct {
	outputDir string
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator writing into outputDir.
func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles the report material for one dataset and its
// aggregation tables. The equity curve is included when includeEquity is set
// and at least one closed trade exists.
func (g *Generator) Generate(title string, ds *engine.Dataset, tables []MetricsTable, includeEquity bool) *Report {
	start, end, _ := ds.DateRange()

	r := &Report{
		Title:       title,
		GeneratedAt: g.now(),
		Source:      ds.Source,
		SnapshotID:  ds.SnapshotID,
		ShortID:     ds.ShortID,
		Summary: DataSummary{
			Accepted:  len(ds.Accepted),
			Rejected:  len(ds.Rejected),
			Open:      ds.OpenCount(),
			Closed:    ds.ClosedCount(),
			DateStart: start,
			DateEnd:   end,
		},
		Tables:     tables,
		Trades:     ds.Accepted,
		Rejections: ds.Rejected,
	}
	if includeEquity {
		r.Equity = metrics.EquityCurve(ds.Accepted)
	}
	return r
}

// Write renders the report and writes every output file, creating the output
// directory if needed. It returns the paths written, in order.
func (g *Generator) Write(r *Report) ([]string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", g.outputDir, err)
	}

	var written []string
	emit := func(name, content string) error {
		path := filepath.Join(g.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if err := emit(reportFile, RenderMarkdown(r)); err != nil {
		return written, err
	}
	for _, table := range r.Tables {
		csv, err := RenderMetricsCSV(table)
		if err != nil {
			return written, err
		}
		if err := emit(metricsFileName(table.Key), csv); err != nil {
			return written, err
		}
	}
	trades, err := RenderTradesCSV(r.Trades)
	if err != nil {
		return written, err
	}
	if err := emit(tradesFile, trades); err != nil {
		return written, err
	}
	if len(r.Equity) > 0 {
		equity, err := RenderEquityCSV(r.Equity)
		if err != nil {
			return written, err
		}
		if err := emit(equityFile, equity); err != nil {
			return written, err
		}
	}

	return written, nil
}

// metricsFileName maps a group key to its METRICS_<KEY>.csv file name.
// The time-bucket interval becomes part of the name, with characters unsafe
// in file names replaced.
func metricsFileName(key metrics.GroupKey) string {
	name := strings.ReplaceAll(key.CacheKey(), ":", "_")
	name = strings.ReplaceAll(name, ".", "_")
	return "METRICS_" + strings.ToUpper(name) + ".csv"
}
