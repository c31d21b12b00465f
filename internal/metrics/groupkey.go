// Package metrics computes aggregate trade statistics over validated records.
// All financial arithmetic is exact decimal; float64 never enters a P&L
// calculation.
package metrics

import (
	"fmt"
	"time"

	"trade-analytics-lab/internal/domain"
)

// GroupKind identifies a grouping dimension for metric computation.
type GroupKind string

const (
	// GroupByPair groups trades by trading pair.
	GroupByPair GroupKind = "by_pair"
	// GroupByStrategy groups trades by strategy label.
	GroupByStrategy GroupKind = "by_strategy"
	// GroupByPairAndStrategy groups by the pair|strategy combination.
	GroupByPairAndStrategy GroupKind = "by_pair_and_strategy"
	// GroupByTimeBucket groups trades into fixed UTC time buckets.
	GroupByTimeBucket GroupKind = "by_time_bucket"
)

// String returns the string representation.
func (k GroupKind) String() string {
	return string(k)
}

// IsValid checks if the group kind is known.
func (k GroupKind) IsValid() bool {
	switch k {
	case GroupByPair, GroupByStrategy, GroupByPairAndStrategy, GroupByTimeBucket:
		return true
	}
	return false
}

// ParseGroupKind maps the short forms used on the command line and in API
// query strings to a GroupKind. The canonical names are accepted too.
func ParseGroupKind(s string) (GroupKind, bool) {
	switch s {
	case "pair", string(GroupByPair):
		return GroupByPair, true
	case "strategy", string(GroupByStrategy):
		return GroupByStrategy, true
	case "pair_strategy", string(GroupByPairAndStrategy):
		return GroupByPairAndStrategy, true
	case "time_bucket", string(GroupByTimeBucket):
		return GroupByTimeBucket, true
	}
	return "", false
}

// GroupKey selects how accepted trades are partitioned before metric
// computation. BucketInterval is required for GroupByTimeBucket and ignored
// otherwise.
type GroupKey struct {
	Kind           GroupKind
	BucketInterval time.Duration
}

// Validate checks the key before computation.
func (k GroupKey) Validate() error {
	if !k.Kind.IsValid() {
		return &domain.ConfigurationError{
			Param:  "group_key",
			Value:  string(k.Kind),
			Reason: "unknown group kind",
		}
	}
	if k.Kind == GroupByTimeBucket && k.BucketInterval <= 0 {
		return &domain.ConfigurationError{
			Param:  "bucket_interval",
			Value:  k.BucketInterval.String(),
			Reason: "time bucket grouping requires a positive interval",
		}
	}
	return nil
}

// CacheKey yields the canonical string form used for cache addressing.
func (k GroupKey) CacheKey() string {
	if k.Kind == GroupByTimeBucket {
		return fmt.Sprintf("%s:%s", k.Kind, k.BucketInterval)
	}
	return string(k.Kind)
}
