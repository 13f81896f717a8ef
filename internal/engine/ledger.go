package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the single open long of a run, created on an approved entry
// and destroyed on exit. The engine owns it exclusively.
type Position struct {
	EntryPrice decimal.Decimal
	EntryTime  time.Time
	Quantity   decimal.Decimal
	BarsHeld   int
}

// ledger is the running capital of one run. Updates are strictly additive:
// realized P&L and fees in, never a multiplicative compounding step.
type ledger struct {
	initial decimal.Decimal
	capital decimal.Decimal
}

func newLedger(initial decimal.Decimal) *ledger {
	return &ledger{initial: initial, capital: initial}
}

func (l *ledger) settle(pnl, fees decimal.Decimal) {
	l.capital = l.capital.Add(pnl).Sub(fees)
}

// markToMarket values the ledger plus the unrealized P&L of an open
// position at the given price.
func (l *ledger) markToMarket(pos *Position, price decimal.Decimal) decimal.Decimal {
	if pos == nil {
		return l.capital
	}
	return l.capital.Add(price.Sub(pos.EntryPrice).Mul(pos.Quantity))
}
