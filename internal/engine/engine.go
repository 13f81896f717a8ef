// Package engine drives the bar-by-bar backtest: a strictly sequenced,
// look-ahead-free loop over one symbol, with exact position and capital
// bookkeeping under fees and risk limits. Decisions are made on the snapshot
// of bar t-1 and executed at bar t's close, uniformly for entries and exits.
package engine

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"intrasim/internal/indicator"
	"intrasim/internal/metrics"
	"intrasim/internal/risk"
	"intrasim/internal/signal"
	"intrasim/types"
)

// Engine runs backtests for one provider under one configuration. Each Run
// owns its own tracker, risk manager, ledger and position, so independent
// runs never interfere.
type Engine struct {
	cfg      Config
	provider signal.Provider
}

func New(cfg Config, provider signal.Provider) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: signal provider is required", ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, provider: provider}, nil
}

// Result is the full output of one run.
type Result struct {
	RollID  string
	Trades  []types.Trade
	Equity  []types.EquityPoint
	Metrics metrics.Summary
}

// Run processes the materialized bar slice in order and returns the trade
// ledger, equity curve and metrics summary. Identical bars and configuration
// always produce an identical result.
func (e *Engine) Run(bars []types.Bar) (*Result, error) {
	if err := validateBars(bars); err != nil {
		return nil, err
	}

	rollID := e.cfg.rollID(bars)
	tracker := indicator.NewTracker(e.cfg.Indicator)
	riskMgr := risk.NewManager(e.cfg.Risk)
	led := newLedger(e.cfg.InitialCapital)

	var pos *Position
	prev := indicator.Undefined()
	havePrev := false

	trades := make([]types.Trade, 0)
	equity := make([]types.EquityPoint, 0, len(bars))

	var progress *progressbar.ProgressBar
	if e.cfg.ShowProgress {
		progress = newProgressBar(len(bars))
	}

	for i, bar := range bars {
		snap := tracker.Update(bar)
		last := i == len(bars)-1
		sessionBlocked := e.cfg.SessionClose >= 0 && minutesOfDay(bar.Timestamp) >= e.cfg.SessionClose

		// Decide on the t-1 snapshot, execute at this bar's close.
		proposed := types.ActionHold
		var exitReason types.ExitReason
		if pos != nil {
			pos.BarsHeld++
			switch {
			case havePrev && e.provider.Decide(prev).IsExit():
				exitReason = types.ExitSignal
			case e.cfg.MaxHoldBars > 0 && pos.BarsHeld >= e.cfg.MaxHoldBars:
				exitReason = types.ExitMaxHold
			case e.outlier(pos, bar):
				exitReason = types.ExitOutlierClamp
			case sessionBlocked:
				exitReason = types.ExitSessionClose
			case last:
				exitReason = types.ExitEndOfData
			}
			if exitReason != "" {
				proposed = types.ActionClose
			}
		} else if havePrev && !sessionBlocked && !last {
			if e.provider.Decide(prev) == types.ActionBuy {
				proposed = types.ActionBuy
			}
		}

		riskMgr.ObserveEquity(led.markToMarket(pos, bar.Close))
		dec := riskMgr.Approve(proposed, pos != nil, led.capital, bar.Close, prev)

		var err error
		switch dec.Verdict {
		case risk.ForceExit:
			trades, err = e.close(trades, led, pos, bar, types.ExitBreaker, rollID)
			if err != nil {
				return nil, err
			}
			pos = nil
		case risk.Approve:
			switch {
			case proposed == types.ActionClose:
				trades, err = e.close(trades, led, pos, bar, exitReason, rollID)
				if err != nil {
					return nil, err
				}
				pos = nil
			case proposed == types.ActionBuy:
				if pos != nil {
					return nil, fmt.Errorf("%w: entry with a position already open at %s",
						ErrInvariantViolated, bar.Timestamp)
				}
				pos = &Position{EntryPrice: bar.Close, EntryTime: bar.Timestamp, Quantity: dec.Quantity}
				// The entry order fee is owed now, so the marked equity
				// and the breaker's drawdown base see it while the
				// position is open.
				led.settle(decimal.Zero, e.cfg.FeePerOrder)
			}
		}

		if led.capital.IsNegative() && !riskMgr.Tripped() {
			return nil, fmt.Errorf("%w: capital negative with the breaker armed at %s",
				ErrInvariantViolated, bar.Timestamp)
		}

		equity = append(equity, types.EquityPoint{
			Timestamp: bar.Timestamp,
			Capital:   led.markToMarket(pos, bar.Close),
		})

		prev = snap
		havePrev = true
		if progress != nil {
			progress.Add(1)
		}
	}

	return &Result{
		RollID:  rollID,
		Trades:  trades,
		Equity:  equity,
		Metrics: metrics.Compute(trades, equity, e.cfg.periodsPerYear()),
	}, nil
}

// close settles an exit at the bar's close price: gross P&L plus the exit
// order fee hit the ledger additively (the entry fee was debited at open),
// and the immutable trade record carries both fees.
func (e *Engine) close(trades []types.Trade, led *ledger, pos *Position, bar types.Bar, reason types.ExitReason, rollID string) ([]types.Trade, error) {
	if pos == nil {
		return nil, fmt.Errorf("%w: exit with no open position at %s", ErrInvariantViolated, bar.Timestamp)
	}
	if !bar.Timestamp.After(pos.EntryTime) {
		return nil, fmt.Errorf("%w: exit time %s not after entry time %s",
			ErrInvariantViolated, bar.Timestamp, pos.EntryTime)
	}

	pnl := bar.Close.Sub(pos.EntryPrice).Mul(pos.Quantity)
	fees := e.cfg.FeePerOrder.Mul(decimal.NewFromInt(2))
	led.settle(pnl, e.cfg.FeePerOrder)

	return append(trades, types.Trade{
		RollID:       rollID,
		StrategyID:   e.cfg.StrategyID,
		Symbol:       e.cfg.Symbol,
		Timeframe:    e.cfg.Timeframe,
		EntryTime:    pos.EntryTime,
		ExitTime:     bar.Timestamp,
		EntryPrice:   pos.EntryPrice,
		ExitPrice:    bar.Close,
		Quantity:     pos.Quantity,
		PnL:          pnl,
		Fees:         fees,
		CapitalAfter: led.capital,
		BarsHeld:     pos.BarsHeld,
		Reason:       reason,
	}), nil
}

// outlier clamps runaway trades at execution time: once the unrealized
// return magnitude reaches the cap, the position exits at this bar.
func (e *Engine) outlier(pos *Position, bar types.Bar) bool {
	if e.cfg.OutlierCap <= 0 {
		return false
	}
	r, _ := bar.Close.Sub(pos.EntryPrice).Div(pos.EntryPrice).Float64()
	if r < 0 {
		r = -r
	}
	return r >= e.cfg.OutlierCap
}

// validateBars rejects malformed input before the loop: the run aborts and
// no partial ledger is trusted.
func validateBars(bars []types.Bar) error {
	if len(bars) == 0 {
		return ErrNoBars
	}
	for i, bar := range bars {
		if !bar.Close.IsPositive() {
			return fmt.Errorf("%w: bar %d at %s", ErrNonPositiveClose, i, bar.Timestamp)
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d at %s", ErrBarsOutOfOrder, i, bar.Timestamp)
		}
	}
	return nil
}

func newProgressBar(bars int) *progressbar.ProgressBar {
	return progressbar.NewOptions(bars,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
