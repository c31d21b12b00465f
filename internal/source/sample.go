package source

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
)

// DefaultSampleCount is the record count used when none is configured.
const DefaultSampleCount = 250

var (
	samplePairs = []string{"BTC-USD", "ETH-USD", "SOL-USD", "DOGE-USD"}

	// Empty string means the trade carries no strategy label.
	sampleStrategies = []string{"sma-cross", "rsi-reversion", "combined", ""}

	// Entry price anchors per pair, in quote currency.
	sampleBasePrice = map[string]decimal.Decimal{
		"BTC-USD":  decimal.New(43000, 0),
		"ETH-USD":  decimal.New(2300, 0),
		"SOL-USD":  decimal.New(98, 0),
		"DOGE-USD": decimal.New(8, -2),
	}

	sampleEpoch = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
)

// SampleAdapter generates a synthetic trade history. Generation is fully
// deterministic for a given (seed, count) pair: the same inputs always
// produce byte-identical records, so tests and demo runs are reproducible.
//
// The set mixes winning, losing and break-even closed trades, open
// positions, short sells and unlabeled strategies.
type SampleAdapter struct {
	seed  int64
	count int
	opts  Options
}

// NewSampleAdapter creates a sample adapter. count <= 0 falls back to
// DefaultSampleCount.
func NewSampleAdapter(seed int64, count int, opts Options) *SampleAdapter {
	if count <= 0 {
		count = DefaultSampleCount
	}
	return &SampleAdapter{seed: seed, count: count, opts: opts}
}

// Compile-time interface check.
var _ Adapter = (*SampleAdapter)(nil)

// Name returns the adapter kind.
func (a *SampleAdapter) Name() string {
	return "sample"
}

// Load generates the synthetic record set.
func (a *SampleAdapter) Load(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable(a.Name(), err)
	}

	rng := rand.New(rand.NewSource(a.seed))
	result := &Result{}

	for i := 0; i < a.count; i++ {
		record := a.generate(rng, i)
		if !matchesFilter(record, a.opts) {
			continue
		}
		result.Records = append(result.Records, record)
		if a.opts.Limit > 0 && len(result.Records) >= a.opts.Limit {
			break
		}
	}

	return result, nil
}

// generate produces the i-th record. All price math stays in decimals: the
// move is drawn in basis points and applied with an exact power-of-ten shift.
func (a *SampleAdapter) generate(rng *rand.Rand, i int) *domain.TradeRecord {
	pair := samplePairs[rng.Intn(len(samplePairs))]
	strategy := sampleStrategies[rng.Intn(len(sampleStrategies))]

	side := domain.SideBuy
	if rng.Intn(5) == 0 {
		side = domain.SideSell
	}

	entryTime := sampleEpoch.
		Add(time.Duration(i) * 45 * time.Minute).
		Add(time.Duration(rng.Intn(1800)) * time.Second)

	// Jitter the anchor price by up to +-5% in steps of a basis point.
	base := sampleBasePrice[pair]
	entryJitterBP := int64(rng.Intn(1001) - 500)
	entryPrice := base.Mul(decimal.NewFromInt(10000 + entryJitterBP)).Shift(-4)

	quantity := decimal.New(int64(rng.Intn(500)+1), -2) // 0.01 .. 5.00 units

	record := &domain.TradeRecord{
		TradeID:    fmt.Sprintf("smp-%04d", i+1),
		Pair:       pair,
		Strategy:   parseStrategy(strategy),
		Side:       side,
		EntryTime:  entryTime,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		Fees:       decimal.Zero,
	}

	// Roughly one in seven positions is still open.
	if rng.Intn(7) == 0 {
		return record
	}

	hold := time.Duration(rng.Intn(48*60)+30) * time.Minute
	exitTime := entryTime.Add(hold)

	moveBP := int64(rng.Intn(601) - 300)
	fees := entryPrice.Mul(quantity).Shift(-3) // 10 bps on entry notional
	if i%17 == 0 {
		// Exact break-even trade: zero move, zero fees.
		moveBP = 0
		fees = decimal.Zero
	}
	exitPrice := entryPrice.Mul(decimal.NewFromInt(10000 + moveBP)).Shift(-4)

	record.ExitTime = &exitTime
	record.ExitPrice = &exitPrice
	record.Fees = fees
	return record
}
