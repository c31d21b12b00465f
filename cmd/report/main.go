// Command report runs the pipeline once and renders the analytics report
// files: a Markdown summary, per-grouping metrics CSVs, the accepted trade
// export and the equity curve.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"trade-analytics-lab/internal/config"
	"trade-analytics-lab/internal/engine"
	"trade-analytics-lab/internal/logger"
	"trade-analytics-lab/internal/notifications"
	"trade-analytics-lab/internal/reporting"
)

func main() {
	specPath := flag.String("config", "", "Path to a YAML report spec (defaults to built-in groupings)")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides the spec)")
	sourceName := flag.String("source", "", "Data source override: database, csv, or sample")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *sourceName != "" {
		cfg.DataSource = *sourceName
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	logger.Init(logger.Config{
		Level:          level,
		Format:         cfg.LogFormat,
		TracingEnabled: cfg.TraceEnabled,
		ServiceName:    "trade-analytics-report",
	})
	defer logger.Shutdown(ctx)

	spec := config.DefaultReportSpec()
	if *specPath != "" {
		spec, err = config.LoadReportSpec(*specPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading report spec: %v\n", err)
			os.Exit(1)
		}
	}
	if *outputDir != "" {
		spec.OutputDir = *outputDir
	}

	adapter, cleanup, err := engine.BuildAdapter(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up data source: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	eng := engine.New(engine.Options{
		Adapter:     adapter,
		Notifier:    notifications.NewSender(cfg.WebhookURL, ""),
		LoadTimeout: cfg.LoadTimeout,
	})

	ds, err := eng.Refresh(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}

	tables := make([]reporting.MetricsTable, 0, len(spec.GroupKeys))
	for _, gk := range spec.GroupKeys {
		key, err := gk.GroupKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error in report spec: %v\n", err)
			os.Exit(1)
		}
		sets, err := eng.Aggregate(ctx, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error computing %s metrics: %v\n", key.CacheKey(), err)
			os.Exit(1)
		}
		tables = append(tables, reporting.BuildTable(key, sets))
	}

	gen := reporting.NewGenerator(spec.OutputDir)
	report := gen.Generate(spec.Title, ds, tables, spec.EquityCurve)
	paths, err := gen.Write(report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report files: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report generated from snapshot %s (%d accepted, %d rejected):\n",
		ds.ShortID, len(ds.Accepted), len(ds.Rejected))
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
}
