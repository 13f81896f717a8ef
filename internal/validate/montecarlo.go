package validate

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"intrasim/internal/metrics"
	"intrasim/types"
)

var (
	ErrNoTrials   = errors.New("monte carlo needs at least one trial")
	ErrNoTrades   = errors.New("monte carlo needs a non-empty trade ledger")
	ErrBadPeriods = errors.New("monte carlo needs a positive periods per year")
)

// MonteCarloConfig drives the resampling of one realized trade ledger.
type MonteCarloConfig struct {
	Trials int
	Seed   int64
	// Bootstrap samples trades with replacement instead of permuting.
	Bootstrap bool
	// TargetSharpe is the threshold for the exceedance fraction.
	TargetSharpe float64
	// PeriodsPerYear annualizes the rebuilt per-trade return series.
	PeriodsPerYear float64
	Parallelism    int
	ShowProgress   bool
}

// Iteration is one resampled replay. Degenerate iterations (zero-variance
// Sharpe) are recorded with their NaN, never silently dropped.
type Iteration struct {
	Index        int
	Sharpe       float64
	FinalCapital decimal.Decimal
	Degenerate   bool
}

// MCReport is the empirical distribution over all iterations.
type MCReport struct {
	Iterations      []Iteration
	ObservedSharpe  float64
	MeanSharpe      float64
	StdSharpe       float64
	P05, P25, P50   float64
	P75, P95        float64
	FracAboveTarget float64
	Degenerate      int
}

// MonteCarlo estimates how much of an observed Sharpe is trade ordering
// luck: it replays the realized P&L sequence in N resampled orders, rebuilds
// the equity curve additively each time, and reports the Sharpe distribution.
type MonteCarlo struct {
	cfg     MonteCarloConfig
	trades  []types.Trade
	initial decimal.Decimal
}

func NewMonteCarlo(cfg MonteCarloConfig, trades []types.Trade, initialCapital decimal.Decimal) (*MonteCarlo, error) {
	if cfg.Trials <= 0 {
		return nil, ErrNoTrials
	}
	// A zero annualization factor would flatten every Sharpe to 0 and make
	// the whole distribution meaningless, so it is a configuration error.
	if cfg.PeriodsPerYear <= 0 {
		return nil, ErrBadPeriods
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}
	return &MonteCarlo{cfg: cfg, trades: trades, initial: initialCapital}, nil
}

// Run executes every iteration, parallel across iterations. Each iteration
// seeds its own rng from Seed + index, so results are bit-for-bit
// reproducible no matter how the scheduler interleaves them.
func (m *MonteCarlo) Run(ctx context.Context) (*MCReport, error) {
	iterations := make([]Iteration, m.cfg.Trials)

	parallelism := m.cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	var progress *progressbar.ProgressBar
	if m.cfg.ShowProgress {
		progress = progressbar.Default(int64(m.cfg.Trials), "monte carlo")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < m.cfg.Trials; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			iterations[i] = m.iterate(i)
			if progress != nil {
				progress.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return m.summarize(iterations), nil
}

// iterate replays the ledger in one resampled order. The rebuilt curve gets
// one synthetic point per trade plus the starting capital; only the P&L
// order changes, never the P&L values.
func (m *MonteCarlo) iterate(index int) Iteration {
	rng := rand.New(rand.NewSource(m.cfg.Seed + int64(index)))

	n := len(m.trades)
	order := make([]int, n)
	if m.cfg.Bootstrap {
		for i := range order {
			order[i] = rng.Intn(n)
		}
	} else {
		copy(order, rng.Perm(n))
	}

	base := time.Unix(0, 0).UTC()
	capital := m.initial
	equity := make([]types.EquityPoint, 0, n+1)
	equity = append(equity, types.EquityPoint{Timestamp: base, Capital: capital})
	resampled := make([]types.Trade, 0, n)
	for i, j := range order {
		tr := m.trades[j]
		capital = capital.Add(tr.PnL).Sub(tr.Fees)
		equity = append(equity, types.EquityPoint{
			Timestamp: base.Add(time.Duration(i+1) * time.Hour),
			Capital:   capital,
		})
		resampled = append(resampled, tr)
	}

	sharpe := metrics.Compute(resampled, equity, m.cfg.PeriodsPerYear).Sharpe
	return Iteration{
		Index:        index,
		Sharpe:       sharpe,
		FinalCapital: capital,
		Degenerate:   math.IsNaN(sharpe),
	}
}

func (m *MonteCarlo) summarize(iterations []Iteration) *MCReport {
	report := &MCReport{Iterations: iterations, ObservedSharpe: m.observedSharpe()}

	var valid []float64
	above := 0
	for _, it := range iterations {
		if it.Degenerate {
			report.Degenerate++
			continue
		}
		valid = append(valid, it.Sharpe)
		if it.Sharpe >= m.cfg.TargetSharpe {
			above++
		}
	}
	if len(valid) == 0 {
		nan := math.NaN()
		report.MeanSharpe, report.StdSharpe = nan, nan
		report.P05, report.P25, report.P50, report.P75, report.P95 = nan, nan, nan, nan, nan
		report.FracAboveTarget = nan
		return report
	}

	mean := 0.0
	for _, v := range valid {
		mean += v
	}
	mean /= float64(len(valid))
	variance := 0.0
	for _, v := range valid {
		d := v - mean
		variance += d * d
	}
	report.MeanSharpe = mean
	if len(valid) > 1 {
		report.StdSharpe = math.Sqrt(variance / float64(len(valid)-1))
	} else {
		report.StdSharpe = math.NaN()
	}

	sort.Float64s(valid)
	report.P05 = percentile(valid, 0.05)
	report.P25 = percentile(valid, 0.25)
	report.P50 = percentile(valid, 0.50)
	report.P75 = percentile(valid, 0.75)
	report.P95 = percentile(valid, 0.95)
	report.FracAboveTarget = float64(above) / float64(len(iterations))
	return report
}

// observedSharpe replays the ledger in its realized order through the same
// rebuild, so the observed value is directly comparable to the distribution.
func (m *MonteCarlo) observedSharpe() float64 {
	base := time.Unix(0, 0).UTC()
	capital := m.initial
	equity := make([]types.EquityPoint, 0, len(m.trades)+1)
	equity = append(equity, types.EquityPoint{Timestamp: base, Capital: capital})
	for i, tr := range m.trades {
		capital = capital.Add(tr.PnL).Sub(tr.Fees)
		equity = append(equity, types.EquityPoint{
			Timestamp: base.Add(time.Duration(i+1) * time.Hour),
			Capital:   capital,
		})
	}
	return metrics.Compute(m.trades, equity, m.cfg.PeriodsPerYear).Sharpe
}

// percentile is the nearest-rank percentile of an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
