// Package metrics turns a trade ledger and an equity curve into scalar
// performance statistics. Every function is pure; numeric degeneracy (no
// trades, zero-variance returns, zero drawdown) yields NaN sentinels, never
// an error, so a bad fold cannot kill a sweep.
package metrics

import (
	"math"

	"intrasim/types"
)

// Summary is the scalar report for one run or one fold slice. The same
// Compute call serves both, which is what makes train/test degradation
// comparisons valid.
type Summary struct {
	Sharpe       float64
	Sortino      float64
	MaxDrawdown  float64
	Calmar       float64
	WinRate      float64
	ProfitFactor float64
	TradeCount   int
}

// Compute derives the summary from closed trades and per-bar equity samples.
// periodsPerYear annualizes the per-bar return statistics.
func Compute(trades []types.Trade, equity []types.EquityPoint, periodsPerYear float64) Summary {
	s := Summary{TradeCount: len(trades)}
	returns := periodicReturns(equity)

	s.Sharpe = sharpe(returns, periodsPerYear, len(trades))
	s.Sortino = sortino(returns, periodsPerYear, len(trades))
	s.MaxDrawdown = maxDrawdown(equity)
	s.Calmar = calmar(equity, s.MaxDrawdown, periodsPerYear)
	s.WinRate, s.ProfitFactor = tradeStats(trades)
	return s
}

func periodicReturns(equity []types.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	prev, _ := equity[0].Capital.Float64()
	for _, p := range equity[1:] {
		cur, _ := p.Capital.Float64()
		if prev != 0 {
			returns = append(returns, (cur-prev)/prev)
		}
		prev = cur
	}
	return returns
}

func sharpe(returns []float64, periodsPerYear float64, tradeCount int) float64 {
	if tradeCount == 0 || len(returns) < 2 {
		return math.NaN()
	}
	mean, std := meanStdev(returns)
	if std == 0 {
		return math.NaN()
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

func sortino(returns []float64, periodsPerYear float64, tradeCount int) float64 {
	if tradeCount == 0 || len(returns) < 2 {
		return math.NaN()
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)-1))
	if downside == 0 {
		return math.NaN()
	}
	return mean / downside * math.Sqrt(periodsPerYear)
}

func maxDrawdown(equity []types.EquityPoint) float64 {
	if len(equity) == 0 {
		return math.NaN()
	}
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, p := range equity {
		c, _ := p.Capital.Float64()
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (peak - c) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func calmar(equity []types.EquityPoint, maxDD, periodsPerYear float64) float64 {
	if len(equity) < 2 || maxDD <= 0 || math.IsNaN(maxDD) {
		return math.NaN()
	}
	start, _ := equity[0].Capital.Float64()
	end, _ := equity[len(equity)-1].Capital.Float64()
	if start <= 0 || end <= 0 {
		return math.NaN()
	}
	// Annualize the whole-run growth over the number of bar periods.
	periods := float64(len(equity) - 1)
	annual := math.Pow(end/start, periodsPerYear/periods) - 1
	return annual / maxDD
}

func tradeStats(trades []types.Trade) (winRate, profitFactor float64) {
	if len(trades) == 0 {
		return math.NaN(), math.NaN()
	}
	wins := 0
	grossWin, grossLoss := 0.0, 0.0
	for _, tr := range trades {
		net, _ := tr.NetPnL().Float64()
		if net > 0 {
			wins++
			grossWin += net
		} else if net < 0 {
			grossLoss += -net
		}
	}
	winRate = float64(wins) / float64(len(trades))
	if grossLoss == 0 {
		if grossWin == 0 {
			return winRate, math.NaN()
		}
		return winRate, math.Inf(1)
	}
	return winRate, grossWin / grossLoss
}

func meanStdev(xs []float64) (float64, float64) {
	n := float64(len(xs))
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= n

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / (n - 1))
}
