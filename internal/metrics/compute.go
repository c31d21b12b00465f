package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
)

// Decimal scales for derived ratios. Raw P&L sums keep full precision.
const (
	winRateScale = 4
	avgPnLScale  = 8
)

// Compute partitions records by the group key and computes a MetricSet per
// group label. The result is deterministic: the same records and key always
// produce the same map, regardless of input order.
//
// Empty input yields an empty map and no error.
func Compute(records []*domain.TradeRecord, key GroupKey) (map[string]*MetricSet, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	result := make(map[string]*MetricSet)
	for label, group := range partition(records, key) {
		result[label] = computeSet(group)
	}
	return result, nil
}

// Overall computes a single MetricSet over the whole dataset, with no
// grouping applied.
func Overall(records []*domain.TradeRecord) *MetricSet {
	return computeSet(records)
}

// partition splits records into groups keyed by label.
func partition(records []*domain.TradeRecord, key GroupKey) map[string][]*domain.TradeRecord {
	groups := make(map[string][]*domain.TradeRecord)
	for _, rec := range records {
		label := groupLabel(rec, key)
		groups[label] = append(groups[label], rec)
	}
	return groups
}

// UnlabeledStrategy is the reserved group label for records without a
// strategy. Records never carry it as a real strategy name.
const UnlabeledStrategy = "unlabeled"

// groupLabel derives the group label for one record.
func groupLabel(rec *domain.TradeRecord, key GroupKey) string {
	switch key.Kind {
	case GroupByStrategy:
		return strategyLabel(rec)
	case GroupByPairAndStrategy:
		return rec.Pair + "|" + strategyLabel(rec)
	case GroupByTimeBucket:
		return bucketLabel(rec, key.BucketInterval)
	default:
		return rec.Pair
	}
}

func strategyLabel(rec *domain.TradeRecord) string {
	if label := rec.StrategyLabel(); label != "" {
		return label
	}
	return UnlabeledStrategy
}

// bucketLabel formats the UTC bucket start containing the record. Closed
// trades belong to the bucket they closed in; open trades to the bucket they
// opened in.
func bucketLabel(rec *domain.TradeRecord, interval time.Duration) string {
	at := rec.EntryTime
	if rec.IsClosed() {
		at = *rec.ExitTime
	}
	return at.UTC().Truncate(interval).Format(time.RFC3339)
}

// computeSet calculates the full metric set for one group.
func computeSet(records []*domain.TradeRecord) *MetricSet {
	closed := sortedClosed(records)

	ms := &MetricSet{
		ClosedTrades:   len(closed),
		OpenPositions:  len(records) - len(closed),
		WinRate:        decimal.Zero,
		GrossPnL:       decimal.Zero,
		NetPnL:         decimal.Zero,
		TotalFees:      decimal.Zero,
		MaxDrawdown:    decimal.Zero,
		MaxDrawdownPct: decimal.Zero,
	}
	if len(closed) == 0 {
		return ms
	}

	var holding time.Duration
	nets := make([]decimal.Decimal, len(closed))
	for i, rec := range closed {
		gross := grossPnL(rec)
		net := gross.Sub(rec.Fees)
		nets[i] = net

		ms.GrossPnL = ms.GrossPnL.Add(gross)
		ms.NetPnL = ms.NetPnL.Add(net)
		ms.TotalFees = ms.TotalFees.Add(rec.Fees)

		switch net.Sign() {
		case 1:
			ms.Wins++
		case -1:
			ms.Losses++
		default:
			ms.ZeroPnL++
		}

		holding += rec.ExitTime.Sub(rec.EntryTime)
	}

	if decided := ms.Wins + ms.Losses; decided > 0 {
		ms.WinRate = decimal.NewFromInt(int64(ms.Wins)).
			DivRound(decimal.NewFromInt(int64(decided)), winRateScale)
	}

	ms.MaxDrawdown, ms.MaxDrawdownPct = maxDrawdown(nets)

	avg := ms.NetPnL.DivRound(decimal.NewFromInt(int64(len(closed))), avgPnLScale)
	ms.AvgPnL = &avg

	avgHold := holding / time.Duration(len(closed))
	ms.AvgHoldingDuration = &avgHold

	return ms
}

// grossPnL computes (exit - entry) * quantity * direction for a closed trade.
// A sell profits when price falls, so its direction sign is -1.
func grossPnL(rec *domain.TradeRecord) decimal.Decimal {
	return rec.ExitPrice.Sub(rec.EntryPrice).
		Mul(rec.Quantity).
		Mul(rec.Side.DirectionSign())
}

// sortedClosed filters to closed trades and orders them by exit_time ASC with
// trade_id ASC as tiebreak, the canonical order for equity-curve metrics.
func sortedClosed(records []*domain.TradeRecord) []*domain.TradeRecord {
	closed := make([]*domain.TradeRecord, 0, len(records))
	for _, rec := range records {
		if rec.IsClosed() {
			closed = append(closed, rec)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		if !closed[i].ExitTime.Equal(*closed[j].ExitTime) {
			return closed[i].ExitTime.Before(*closed[j].ExitTime)
		}
		return closed[i].TradeID < closed[j].TradeID
	})
	return closed
}

// maxDrawdown walks the cumulative net-equity sequence and returns the
// largest peak-to-point drop, absolute and as a percentage of the peak it
// measured from. The peak starts at the first cumulative value, so a single
// trade or a monotonically rising curve yields 0. The percentage is 0 when
// the relevant peak is not positive.
func maxDrawdown(nets []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if len(nets) == 0 {
		return decimal.Zero, decimal.Zero
	}

	cumulative := decimal.Zero
	peak := decimal.Zero
	maxDD := decimal.Zero
	peakAtMax := decimal.Zero

	for i, net := range nets {
		cumulative = cumulative.Add(net)
		if i == 0 || cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if dd := peak.Sub(cumulative); dd.GreaterThan(maxDD) {
			maxDD = dd
			peakAtMax = peak
		}
	}

	if maxDD.IsZero() || !peakAtMax.IsPositive() {
		return maxDD, decimal.Zero
	}
	pct := maxDD.Mul(decimal.NewFromInt(100)).DivRound(peakAtMax, winRateScale)
	return maxDD, pct
}
