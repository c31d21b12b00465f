package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/source"
)

// Adapter implements source.Adapter over a PostgreSQL trades table.
//
// Expected schema (see migrations/postgres):
//
//	trades (
//	    trade_id    TEXT PRIMARY KEY,
//	    pair        TEXT NOT NULL,
//	    strategy    TEXT,
//	    side        TEXT NOT NULL,
//	    entry_time  TIMESTAMPTZ NOT NULL,
//	    exit_time   TIMESTAMPTZ,
//	    entry_price NUMERIC NOT NULL,
//	    exit_price  NUMERIC,
//	    quantity    NUMERIC NOT NULL,
//	    fees        NUMERIC NOT NULL DEFAULT 0
//	)
//
// Rows whose required columns are NULL or unparseable are skipped and
// reported as translation errors rather than failing the load.
type Adapter struct {
	pool *Pool
	opts source.Options
}

// NewAdapter creates a postgres adapter over an existing pool.
func NewAdapter(pool *Pool, opts source.Options) *Adapter {
	return &Adapter{pool: pool, opts: opts}
}

// Compile-time interface check.
var _ source.Adapter = (*Adapter)(nil)

// Name returns the adapter kind.
func (a *Adapter) Name() string {
	return "postgres"
}

// Load queries the trades table, applying the configured filters server-side.
// Rows come back ordered by (entry_time, trade_id) for stable output.
func (a *Adapter) Load(ctx context.Context) (*source.Result, error) {
	query, args := a.buildQuery()

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, source.Unavailable(a.Name(), fmt.Errorf("query trades: %w", err))
	}
	defer rows.Close()

	result := &source.Result{}
	rowNum := 0
	for rows.Next() {
		rowNum++

		var (
			tradeID    *string
			pair       *string
			strategy   *string
			side       *string
			entryTime  *time.Time
			exitTime   *time.Time
			entryPrice *decimal.Decimal
			exitPrice  *decimal.Decimal
			quantity   *decimal.Decimal
			fees       *decimal.Decimal
		)
		if err := rows.Scan(
			&tradeID, &pair, &strategy, &side, &entryTime,
			&exitTime, &entryPrice, &exitPrice, &quantity, &fees,
		); err != nil {
			return nil, source.Unavailable(a.Name(), fmt.Errorf("scan trade row %d: %w", rowNum, err))
		}

		record, terr := translateRow(rowNum, tradeID, pair, strategy, side, entryTime, exitTime, entryPrice, exitPrice, quantity, fees)
		if terr != nil {
			result.Translation = append(result.Translation, *terr)
			continue
		}
		result.Records = append(result.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, source.Unavailable(a.Name(), fmt.Errorf("iterate trades: %w", err))
	}

	return result, nil
}

// buildQuery assembles the filtered SELECT with positional placeholders.
func (a *Adapter) buildQuery() (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT trade_id, pair, strategy, side, entry_time,
		       exit_time, entry_price, exit_price, quantity, fees
		FROM trades`)

	var conditions []string
	var args []any
	if a.opts.Pair != "" {
		args = append(args, a.opts.Pair)
		conditions = append(conditions, fmt.Sprintf("pair = $%d", len(args)))
	}
	if a.opts.Since != nil {
		args = append(args, *a.opts.Since)
		conditions = append(conditions, fmt.Sprintf("entry_time >= $%d", len(args)))
	}
	if a.opts.Until != nil {
		args = append(args, *a.opts.Until)
		conditions = append(conditions, fmt.Sprintf("entry_time < $%d", len(args)))
	}
	if len(conditions) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	sb.WriteString("\n\t\tORDER BY entry_time ASC, trade_id ASC")

	if a.opts.Limit > 0 {
		args = append(args, a.opts.Limit)
		sb.WriteString(fmt.Sprintf("\n\t\tLIMIT $%d", len(args)))
	}

	return sb.String(), args
}

// translateRow builds the canonical record, reporting the first NULL required
// column or invalid value as a translation error.
func translateRow(
	rowNum int,
	tradeID, pair, strategy, side *string,
	entryTime, exitTime *time.Time,
	entryPrice, exitPrice, quantity, fees *decimal.Decimal,
) (*domain.TradeRecord, *source.TranslationError) {
	nullErr := func(field string) *source.TranslationError {
		return &source.TranslationError{Field: field, RawValue: "NULL", Reason: "required column is null", Line: rowNum}
	}

	if tradeID == nil {
		return nil, nullErr("trade_id")
	}
	if pair == nil {
		return nil, nullErr("pair")
	}
	if side == nil {
		return nil, nullErr("side")
	}
	parsedSide, ok := domain.ParseSide(*side)
	if !ok {
		return nil, &source.TranslationError{Field: "side", RawValue: *side, Reason: "side must be buy or sell", Line: rowNum}
	}
	if entryTime == nil {
		return nil, nullErr("entry_time")
	}
	if entryPrice == nil {
		return nil, nullErr("entry_price")
	}
	if quantity == nil {
		return nil, nullErr("quantity")
	}

	record := &domain.TradeRecord{
		TradeID:    *tradeID,
		Pair:       *pair,
		Strategy:   strategy,
		Side:       parsedSide,
		EntryTime:  entryTime.UTC(),
		EntryPrice: *entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   *quantity,
		Fees:       decimal.Zero,
	}
	if exitTime != nil {
		utc := exitTime.UTC()
		record.ExitTime = &utc
	}
	if fees != nil {
		record.Fees = *fees
	}
	return record, nil
}
