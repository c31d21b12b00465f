package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// DirectionSign returns +1 for buy (long) and -1 for sell (short).
// Short trades profit when price falls.
func (s Side) DirectionSign() decimal.Decimal {
	if s == SideSell {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// ParseSide normalizes a raw side value ("BUY", "Sell", ...) to a Side.
// The boolean reports whether the value was recognized.
func ParseSide(raw string) (Side, bool) {
	s := Side(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// TradeRecord is the canonical representation of one trade, independent of
// the source it was loaded from. Nullable attributes use pointers: a nil
// Strategy means the trade carries no strategy label, a nil ExitTime/ExitPrice
// means the position is still open.
type TradeRecord struct {
	TradeID    string           `json:"trade_id"`
	Pair       string           `json:"pair"`
	Strategy   *string          `json:"strategy,omitempty"`
	Side       Side             `json:"side"`
	EntryTime  time.Time        `json:"entry_time"`
	ExitTime   *time.Time       `json:"exit_time,omitempty"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Fees       decimal.Decimal  `json:"fees"`
}

// IsClosed reports whether the trade has a fully recorded exit.
// Only closed trades contribute to realized P&L statistics.
func (t *TradeRecord) IsClosed() bool {
	return t.ExitTime != nil && t.ExitPrice != nil
}

// StrategyLabel returns the strategy name, or empty string when unlabeled.
func (t *TradeRecord) StrategyLabel() string {
	if t.Strategy == nil {
		return ""
	}
	return *t.Strategy
}

// HoldingDuration returns exit_time - entry_time for closed trades.
// The boolean is false for open trades.
func (t *TradeRecord) HoldingDuration() (time.Duration, bool) {
	if t.ExitTime == nil {
		return 0, false
	}
	return t.ExitTime.Sub(t.EntryTime), true
}

// Clone returns a deep copy of the record. Pointer fields are duplicated so
// callers can hold records without sharing mutable state.
func (t *TradeRecord) Clone() *TradeRecord {
	c := *t
	if t.Strategy != nil {
		s := *t.Strategy
		c.Strategy = &s
	}
	if t.ExitTime != nil {
		et := *t.ExitTime
		c.ExitTime = &et
	}
	if t.ExitPrice != nil {
		ep := *t.ExitPrice
		c.ExitPrice = &ep
	}
	return &c
}
