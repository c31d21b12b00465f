package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/source"
)

// Adapter implements source.Adapter over a ClickHouse trades table with the
// same column contract as the PostgreSQL adapter (see migrations/clickhouse).
// ClickHouse is the natural backend when trade history is archived in an
// analytics warehouse rather than the transactional database.
type Adapter struct {
	conn *Conn
	opts source.Options
}

// NewAdapter creates a clickhouse adapter over an existing connection.
func NewAdapter(conn *Conn, opts source.Options) *Adapter {
	return &Adapter{conn: conn, opts: opts}
}

// Compile-time interface check.
var _ source.Adapter = (*Adapter)(nil)

// Name returns the adapter kind.
func (a *Adapter) Name() string {
	return "clickhouse"
}

// Load queries the trades table with filters applied server-side.
func (a *Adapter) Load(ctx context.Context) (*source.Result, error) {
	query, args := a.buildQuery()

	rows, err := a.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, source.Unavailable(a.Name(), fmt.Errorf("query trades: %w", err))
	}
	defer rows.Close()

	result := &source.Result{}
	rowNum := 0
	for rows.Next() {
		rowNum++

		var (
			tradeID    string
			pair       string
			strategy   *string
			side       string
			entryTime  time.Time
			exitTime   *time.Time
			entryPrice decimal.Decimal
			exitPrice  *decimal.Decimal
			quantity   decimal.Decimal
			fees       decimal.Decimal
		)
		if err := rows.Scan(
			&tradeID, &pair, &strategy, &side, &entryTime,
			&exitTime, &entryPrice, &exitPrice, &quantity, &fees,
		); err != nil {
			return nil, source.Unavailable(a.Name(), fmt.Errorf("scan trade row %d: %w", rowNum, err))
		}

		parsedSide, ok := domain.ParseSide(side)
		if !ok {
			result.Translation = append(result.Translation, source.TranslationError{
				Field: "side", RawValue: side, Reason: "side must be buy or sell", Line: rowNum,
			})
			continue
		}

		record := &domain.TradeRecord{
			TradeID:    tradeID,
			Pair:       pair,
			Strategy:   strategy,
			Side:       parsedSide,
			EntryTime:  entryTime.UTC(),
			EntryPrice: entryPrice,
			ExitPrice:  exitPrice,
			Quantity:   quantity,
			Fees:       fees,
		}
		if exitTime != nil {
			utc := exitTime.UTC()
			record.ExitTime = &utc
		}
		result.Records = append(result.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, source.Unavailable(a.Name(), fmt.Errorf("iterate trades: %w", err))
	}

	return result, nil
}

// buildQuery assembles the filtered SELECT with ? placeholders.
func (a *Adapter) buildQuery() (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT trade_id, pair, strategy, side, entry_time,
		       exit_time, entry_price, exit_price, quantity, fees
		FROM trades`)

	var conditions []string
	var args []any
	if a.opts.Pair != "" {
		conditions = append(conditions, "pair = ?")
		args = append(args, a.opts.Pair)
	}
	if a.opts.Since != nil {
		conditions = append(conditions, "entry_time >= ?")
		args = append(args, *a.opts.Since)
	}
	if a.opts.Until != nil {
		conditions = append(conditions, "entry_time < ?")
		args = append(args, *a.opts.Until)
	}
	if len(conditions) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	sb.WriteString("\n\t\tORDER BY entry_time ASC, trade_id ASC")

	if a.opts.Limit > 0 {
		sb.WriteString("\n\t\tLIMIT ?")
		args = append(args, a.opts.Limit)
	}

	return sb.String(), args
}
