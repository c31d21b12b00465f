package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trade-analytics-lab/internal/metrics"
)

// ReportSpec describes which aggregations a report run renders. It is read
// from a YAML file passed to the report command:
//
//	title: Trade Performance
//	output_dir: docs
//	group_keys:
//	  - kind: pair
//	  - kind: strategy
//	  - kind: time_bucket
//	    interval: 24h
//	equity_curve: true
type ReportSpec struct {
	Title       string           `yaml:"title"`
	OutputDir   string           `yaml:"output_dir"`
	GroupKeys   []ReportGroupKey `yaml:"group_keys"`
	EquityCurve bool             `yaml:"equity_curve"`
}

// ReportGroupKey is one grouping to render. Interval is a Go duration string
// and only meaningful for time_bucket.
type ReportGroupKey struct {
	Kind     string `yaml:"kind"`
	Interval string `yaml:"interval"`
}

// GroupKey converts the YAML form to a metrics group key.
func (k ReportGroupKey) GroupKey() (metrics.GroupKey, error) {
	kind, ok := metrics.ParseGroupKind(k.Kind)
	if !ok {
		return metrics.GroupKey{}, fmt.Errorf("unknown group kind %q", k.Kind)
	}

	key := metrics.GroupKey{Kind: kind}
	if k.Interval != "" {
		interval, err := time.ParseDuration(k.Interval)
		if err != nil {
			return metrics.GroupKey{}, fmt.Errorf("interval %q: %w", k.Interval, err)
		}
		key.BucketInterval = interval
	}

	if err := key.Validate(); err != nil {
		return metrics.GroupKey{}, err
	}
	return key, nil
}

// Validate checks every group key parses.
func (s *ReportSpec) Validate() error {
	for i, k := range s.GroupKeys {
		if _, err := k.GroupKey(); err != nil {
			return fmt.Errorf("group_keys[%d]: %w", i, err)
		}
	}
	return nil
}

// LoadReportSpec reads and validates a report spec file, applying defaults
// for missing fields.
func LoadReportSpec(path string) (*ReportSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s ReportSpec
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	if s.Title == "" {
		s.Title = "Trade Performance Report"
	}
	if s.OutputDir == "" {
		s.OutputDir = "docs"
	}
	if len(s.GroupKeys) == 0 {
		s.GroupKeys = []ReportGroupKey{{Kind: "pair"}, {Kind: "strategy"}}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("report spec validation failed: %w", err)
	}

	return &s, nil
}

// DefaultReportSpec is the spec used when no file is supplied.
func DefaultReportSpec() *ReportSpec {
	return &ReportSpec{
		Title:     "Trade Performance Report",
		OutputDir: "docs",
		GroupKeys: []ReportGroupKey{
			{Kind: "pair"},
			{Kind: "strategy"},
			{Kind: "pair_strategy"},
			{Kind: "time_bucket", Interval: "24h"},
		},
		EquityCurve: true,
	}
}
