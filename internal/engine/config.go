package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"intrasim/internal/indicator"
	"intrasim/internal/risk"
	"intrasim/types"
)

// Config is the explicit, immutable run configuration. A copy is threaded
// into every run; there are no hidden globals, which is what lets sweeps run
// folds in parallel without cross-talk.
type Config struct {
	Symbol     string
	Timeframe  types.Interval
	StrategyID string

	// RollID tags every trade of a run. Leave empty to derive a
	// deterministic id from the run inputs, or set one (e.g. a uuid)
	// for ad-hoc runs.
	RollID string

	InitialCapital decimal.Decimal
	FeePerOrder    decimal.Decimal

	// MaxHoldBars force-exits a position held this many bars; 0 disables.
	MaxHoldBars int
	// OutlierCap force-exits once |unrealized return| reaches this
	// magnitude (e.g. 0.05); 0 disables.
	OutlierCap float64
	// SessionClose is minutes from midnight UTC; at or past it, open
	// positions are flattened and entries blocked for the rest of the
	// day. Negative disables.
	SessionClose int

	Indicator indicator.Config
	Risk      risk.Config

	// PeriodsPerYear for annualization; 0 derives it from Timeframe.
	PeriodsPerYear float64

	ShowProgress bool
}

// Validate rejects invalid parameter combinations before any loop starts.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrConfig)
	}
	if _, ok := types.IntervalToTime[c.Timeframe]; !ok {
		return fmt.Errorf("%w: unknown timeframe %q", ErrConfig, c.Timeframe)
	}
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: initial capital must be positive", ErrConfig)
	}
	if c.FeePerOrder.IsNegative() {
		return fmt.Errorf("%w: fee per order cannot be negative", ErrConfig)
	}
	if c.MaxHoldBars < 0 {
		return fmt.Errorf("%w: max hold bars cannot be negative", ErrConfig)
	}
	if c.OutlierCap < 0 || c.OutlierCap >= 1 {
		return fmt.Errorf("%w: outlier cap must be within [0, 1)", ErrConfig)
	}
	if c.SessionClose >= 24*60 {
		return fmt.Errorf("%w: session close past end of day", ErrConfig)
	}
	if c.Indicator.RSIPeriod <= 0 || c.Indicator.EMAPeriod <= 0 {
		return fmt.Errorf("%w: indicator periods must be positive", ErrConfig)
	}
	if c.Indicator.VolWindow < 2 || c.Indicator.ERWindow <= 0 {
		return fmt.Errorf("%w: indicator windows too small", ErrConfig)
	}
	if c.PeriodsPerYear < 0 {
		return fmt.Errorf("%w: periods per year cannot be negative", ErrConfig)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

func (c Config) periodsPerYear() float64 {
	if c.PeriodsPerYear > 0 {
		return c.PeriodsPerYear
	}
	return c.Timeframe.PeriodsPerYear()
}

// rollID derives a reproducible run id when none was configured, so two runs
// over identical inputs emit byte-identical ledgers.
func (c Config) rollID(bars []types.Bar) string {
	if c.RollID != "" {
		return c.RollID
	}
	first := bars[0].Timestamp
	last := bars[len(bars)-1].Timestamp
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		c.StrategyID, c.Symbol, c.Timeframe,
		first.UTC().Format("20060102T1504"), last.UTC().Format("20060102T1504"))
}

func minutesOfDay(ts time.Time) int {
	return ts.UTC().Hour()*60 + ts.UTC().Minute()
}
