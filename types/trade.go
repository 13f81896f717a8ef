package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records which rule closed a trade.
type ExitReason string

const (
	ExitSignal       ExitReason = "signal"
	ExitMaxHold      ExitReason = "max_hold"
	ExitOutlierClamp ExitReason = "outlier_clamp"
	ExitSessionClose ExitReason = "session_close"
	ExitEndOfData    ExitReason = "end_of_data"
	ExitBreaker      ExitReason = "breaker"
)

// Trade is the immutable record written when a position closes. PnL is the
// gross price P&L (exit - entry) * quantity; fees are carried separately so
// the additive capital invariant initial + sum of pnl - sum of fees stays literally
// checkable against the ledger.
type Trade struct {
	RollID       string
	StrategyID   string
	Symbol       string
	Timeframe    Interval
	EntryTime    time.Time
	ExitTime     time.Time
	EntryPrice   decimal.Decimal
	ExitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	PnL          decimal.Decimal
	Fees         decimal.Decimal
	CapitalAfter decimal.Decimal
	BarsHeld     int
	Reason       ExitReason
}

// NetPnL is the realized P&L after fees.
func (t Trade) NetPnL() decimal.Decimal {
	return t.PnL.Sub(t.Fees)
}

// Duration is the holding time of the trade.
func (t Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
