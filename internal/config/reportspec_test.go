package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"trade-analytics-lab/internal/metrics"
)

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write spec: %v", err)
	}
	return path
}

func TestLoadReportSpec(t *testing.T) {
	path := writeSpec(t, `
title: Q1 Review
output_dir: out
group_keys:
  - kind: pair
  - kind: time_bucket
    interval: 24h
equity_curve: true
`)

	spec, err := LoadReportSpec(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if spec.Title != "Q1 Review" || spec.OutputDir != "out" {
		t.Errorf("header = %q/%q", spec.Title, spec.OutputDir)
	}
	if len(spec.GroupKeys) != 2 {
		t.Fatalf("expected 2 group keys, got %d", len(spec.GroupKeys))
	}
	if !spec.EquityCurve {
		t.Error("equity_curve should be true")
	}

	key, err := spec.GroupKeys[1].GroupKey()
	if err != nil {
		t.Fatalf("group key conversion failed: %v", err)
	}
	if key.Kind != metrics.GroupByTimeBucket || key.BucketInterval != 24*time.Hour {
		t.Errorf("key = %+v", key)
	}
}

func TestLoadReportSpec_Defaults(t *testing.T) {
	spec, err := LoadReportSpec(writeSpec(t, "title: Minimal\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if spec.OutputDir != "docs" {
		t.Errorf("OutputDir = %q, want docs", spec.OutputDir)
	}
	if len(spec.GroupKeys) != 2 {
		t.Errorf("expected default group keys, got %v", spec.GroupKeys)
	}
}

func TestLoadReportSpec_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown_kind", "group_keys:\n  - kind: venue\n"},
		{"bad_interval", "group_keys:\n  - kind: time_bucket\n    interval: daily\n"},
		{"bucket_without_interval", "group_keys:\n  - kind: time_bucket\n"},
		{"not_yaml", "title: [unclosed\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadReportSpec(writeSpec(t, tc.content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadReportSpec_MissingFile(t *testing.T) {
	if _, err := LoadReportSpec(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultReportSpec(t *testing.T) {
	spec := DefaultReportSpec()
	if err := spec.Validate(); err != nil {
		t.Fatalf("default spec must validate: %v", err)
	}
	if len(spec.GroupKeys) != 4 {
		t.Errorf("expected 4 group keys, got %d", len(spec.GroupKeys))
	}
}
