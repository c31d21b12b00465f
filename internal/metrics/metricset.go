package metrics

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricSet holds the aggregate statistics for one group of trades.
//
// Only closed trades contribute to the financial fields; open trades are
// counted in OpenPositions and nothing else. AvgPnL and AvgHoldingDuration
// are nil rather than zero when the group has no closed trades, so a group of
// open positions cannot be mistaken for a break-even one.
type MetricSet struct {
	ClosedTrades  int `json:"closed_trades"`  // closed trades in the group
	Wins          int `json:"wins"`           // net P&L > 0
	Losses        int `json:"losses"`         // net P&L < 0
	ZeroPnL       int `json:"zero_pnl"`       // net P&L exactly 0
	OpenPositions int `json:"open_positions"` // trades without an exit

	WinRate   decimal.Decimal `json:"win_rate"`   // wins / (wins + losses), 0 when undefined
	GrossPnL  decimal.Decimal `json:"gross_pnl"`  // sum of per-trade gross P&L
	NetPnL    decimal.Decimal `json:"net_pnl"`    // gross minus fees
	TotalFees decimal.Decimal `json:"total_fees"` // sum of fees on closed trades

	// MaxDrawdown is the largest drop from a running-equity peak to a later
	// point, over closed trades in exit order. MaxDrawdownPct expresses it as
	// a percentage of the peak it fell from.
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`

	AvgPnL             *decimal.Decimal `json:"avg_pnl,omitempty"`
	AvgHoldingDuration *time.Duration   `json:"avg_holding_duration_ns,omitempty"`
}
