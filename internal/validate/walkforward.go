// Package validate estimates whether an observed edge generalizes: rolling
// walk-forward splits with degradation scoring, and Monte Carlo resampling
// of the realized trade sequence. Both wrap the backtest engine as outer
// loops over fully independent runs, so folds and iterations parallelize
// freely and cancel cleanly at run boundaries.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"intrasim/internal/engine"
	"intrasim/internal/metrics"
	"intrasim/internal/signal"
	"intrasim/types"
)

var (
	ErrBadWindow        = errors.New("walk-forward window lengths must be positive")
	ErrInsufficientBars = errors.New("not enough bars for a single walk-forward fold")
)

// WindowSpec describes the rolling train/test split, in bars.
type WindowSpec struct {
	TrainBars int
	TestBars  int
	StepBars  int
}

func (w WindowSpec) validate() error {
	if w.TrainBars <= 0 || w.TestBars <= 0 || w.StepBars <= 0 {
		return ErrBadWindow
	}
	return nil
}

// Fold is one immutable train/test split with both runs' summaries.
// Degradation is (train Sharpe - test Sharpe) / train Sharpe; when train
// Sharpe is not positive the fold is marked degenerate and degradation is
// NaN. Degenerate folds are recorded, never dropped.
type Fold struct {
	Index      int
	TrainStart int
	TrainEnd   int
	TestStart  int
	TestEnd    int

	TrainMetrics metrics.Summary
	TestMetrics  metrics.Summary
	Degradation  float64
	Degenerate   bool
}

// ProviderFactory builds a fresh provider per run so no state can leak
// between folds even if a provider keeps internal buffers.
type ProviderFactory func() (signal.Provider, error)

// WalkForward slides the window spec across the bar slice and backtests each
// train and test slice independently with the identical configuration. There
// is no in-fold re-fitting.
type WalkForward struct {
	cfg     engine.Config
	factory ProviderFactory
	spec    WindowSpec
	bars    []types.Bar
	log     *zap.Logger

	windows [][4]int
}

func NewWalkForward(cfg engine.Config, factory ProviderFactory, spec WindowSpec, bars []types.Bar, log *zap.Logger) (*WalkForward, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: provider factory is required", engine.ErrConfig)
	}
	if log == nil {
		log = zap.NewNop()
	}

	windows := splitWindows(len(bars), spec)
	if len(windows) == 0 {
		return nil, ErrInsufficientBars
	}
	return &WalkForward{cfg: cfg, factory: factory, spec: spec, bars: bars, log: log, windows: windows}, nil
}

func splitWindows(n int, spec WindowSpec) [][4]int {
	var windows [][4]int
	for start := 0; start+spec.TrainBars+spec.TestBars <= n; start += spec.StepBars {
		trainEnd := start + spec.TrainBars
		windows = append(windows, [4]int{start, trainEnd, trainEnd, trainEnd + spec.TestBars})
	}
	return windows
}

// FoldCount is the number of folds the window spec yields over the data.
func (w *WalkForward) FoldCount() int {
	return len(w.windows)
}

// Folds returns a lazy iterator over the fold sequence. Each Next call runs
// one fold; calling Folds again restarts from the first fold.
func (w *WalkForward) Folds() *FoldIter {
	return &FoldIter{wf: w}
}

type FoldIter struct {
	wf   *WalkForward
	next int
}

// Next runs and returns the next fold, or nil when the sequence is done.
func (it *FoldIter) Next(ctx context.Context) (*Fold, error) {
	if it.next >= len(it.wf.windows) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fold, err := it.wf.runFold(it.next)
	if err != nil {
		return nil, err
	}
	it.next++
	return fold, nil
}

func (w *WalkForward) runFold(idx int) (*Fold, error) {
	win := w.windows[idx]

	train, err := w.runSlice(fmt.Sprintf("fold%d-train", idx), w.bars[win[0]:win[1]])
	if err != nil {
		return nil, fmt.Errorf("fold %d train: %w", idx, err)
	}
	test, err := w.runSlice(fmt.Sprintf("fold%d-test", idx), w.bars[win[2]:win[3]])
	if err != nil {
		return nil, fmt.Errorf("fold %d test: %w", idx, err)
	}

	fold := &Fold{
		Index:        idx,
		TrainStart:   win[0],
		TrainEnd:     win[1],
		TestStart:    win[2],
		TestEnd:      win[3],
		TrainMetrics: train.Metrics,
		TestMetrics:  test.Metrics,
	}
	fold.Degradation, fold.Degenerate = degradation(train.Metrics.Sharpe, test.Metrics.Sharpe)

	w.log.Debug("walk-forward fold complete",
		zap.Int("fold", idx),
		zap.Float64("train_sharpe", train.Metrics.Sharpe),
		zap.Float64("test_sharpe", test.Metrics.Sharpe),
		zap.Float64("degradation", fold.Degradation),
		zap.Bool("degenerate", fold.Degenerate),
	)
	return fold, nil
}

// runSlice backtests one slice with the shared configuration. Every run gets
// its own engine, provider, ledger and position, so folds never share state.
func (w *WalkForward) runSlice(rollID string, bars []types.Bar) (*engine.Result, error) {
	provider, err := w.factory()
	if err != nil {
		return nil, err
	}
	cfg := w.cfg
	cfg.RollID = rollID
	cfg.ShowProgress = false
	eng, err := engine.New(cfg, provider)
	if err != nil {
		return nil, err
	}
	return eng.Run(bars)
}

func degradation(trainSharpe, testSharpe float64) (float64, bool) {
	if math.IsNaN(trainSharpe) || math.IsNaN(testSharpe) || trainSharpe <= 0 {
		return math.NaN(), true
	}
	return (trainSharpe - testSharpe) / trainSharpe, false
}

// Report aggregates a full walk-forward pass.
type Report struct {
	Folds           []Fold
	MeanTestSharpe  float64
	StdTestSharpe   float64
	DegenerateFolds int
}

// Run executes every fold, in parallel across folds, and aggregates. The
// context cancels cooperatively between fold runs; already-completed folds
// are never corrupted.
func (w *WalkForward) Run(ctx context.Context, parallelism int) (*Report, error) {
	if parallelism <= 0 {
		parallelism = 1
	}

	folds := make([]Fold, len(w.windows))
	var progress *progressbar.ProgressBar
	if w.cfg.ShowProgress {
		progress = progressbar.Default(int64(len(w.windows)), "walk-forward")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for idx := range w.windows {
		idx := idx
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fold, err := w.runFold(idx)
			if err != nil {
				return err
			}
			folds[idx] = *fold
			if progress != nil {
				progress.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Folds: folds}
	report.MeanTestSharpe, report.StdTestSharpe = summarizeTestSharpe(folds)
	for _, f := range folds {
		if f.Degenerate {
			report.DegenerateFolds++
		}
	}
	return report, nil
}

func summarizeTestSharpe(folds []Fold) (float64, float64) {
	var valid []float64
	for _, f := range folds {
		if !math.IsNaN(f.TestMetrics.Sharpe) {
			valid = append(valid, f.TestMetrics.Sharpe)
		}
	}
	switch len(valid) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return valid[0], math.NaN()
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
	return mean, math.Sqrt(variance / float64(len(valid)-1))
}
