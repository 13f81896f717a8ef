package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is one mark-to-market equity sample. The engine appends
// exactly one per processed bar.
type EquityPoint struct {
	Timestamp time.Time
	Capital   decimal.Decimal
}
