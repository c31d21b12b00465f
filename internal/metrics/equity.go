package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"trade-analytics-lab/internal/domain"
)

// EquityPoint is one step of the cumulative net-P&L curve.
type EquityPoint struct {
	TradeID    string          `json:"trade_id"`
	ExitTime   time.Time       `json:"exit_time"`
	NetPnL     decimal.Decimal `json:"net_pnl"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// EquityCurve returns the cumulative net-P&L sequence over all closed trades
// in canonical order (exit_time ASC, trade_id ASC). Open trades are excluded.
func EquityCurve(records []*domain.TradeRecord) []EquityPoint {
	closed := sortedClosed(records)
	if len(closed) == 0 {
		return nil
	}

	points := make([]EquityPoint, len(closed))
	cumulative := decimal.Zero
	for i, rec := range closed {
		net := grossPnL(rec).Sub(rec.Fees)
		cumulative = cumulative.Add(net)
		points[i] = EquityPoint{
			TradeID:    rec.TradeID,
			ExitTime:   rec.ExitTime.UTC(),
			NetPnL:     net,
			Cumulative: cumulative,
		}
	}
	return points
}
