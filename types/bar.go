package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one closed price/volume sample at a fixed timeframe. Open, high and
// low are ignored by compliant strategies, so they are not carried at all.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}
