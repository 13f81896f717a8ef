package validate

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrasim/internal/engine"
	"intrasim/internal/indicator"
	"intrasim/internal/metrics"
	"intrasim/internal/risk"
	"intrasim/internal/signal"
	"intrasim/types"
)

func wfConfig() engine.Config {
	return engine.Config{
		Symbol:         "AAPL",
		Timeframe:      types.Hour,
		StrategyID:     "wf-test",
		InitialCapital: decimal.NewFromInt(1000),
		FeePerOrder:    decimal.Zero,
		SessionClose:   -1,
		Indicator:      indicator.Config{RSIPeriod: 2, EMAPeriod: 3, VolWindow: 2, ERWindow: 2},
		Risk: risk.Config{
			MaxAllocation:   decimal.NewFromInt(1),
			DrawdownLimit:   0.9,
			RecoveryBand:    0,
			VolatilityFloor: 0,
		},
	}
}

func meanReversionFactory() ProviderFactory {
	return func() (signal.Provider, error) {
		return signal.NewMeanReversion(30, 70)
	}
}

func sawtoothBars(n int) []types.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, n)
	px := 100.0
	for i := 0; i < n; i++ {
		if i%8 < 4 {
			px -= 1
		} else {
			px += 1
		}
		bars = append(bars, types.Bar{
			Symbol:    "AAPL",
			Interval:  types.Hour,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Close:     decimal.NewFromFloat(px),
			Volume:    decimal.NewFromInt(1000),
		})
	}
	return bars
}

func flatBars(n int) []types.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, types.Bar{
			Symbol:    "AAPL",
			Interval:  types.Hour,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Close:     decimal.NewFromInt(100),
			Volume:    decimal.NewFromInt(1000),
		})
	}
	return bars
}

func TestSplitWindows(t *testing.T) {
	tests := []struct {
		name string
		n    int
		spec WindowSpec
		want int
	}{
		{"exact folds", 100, WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, 3},
		{"one fold", 60, WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, 1},
		{"too short", 59, WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, 0},
		{"dense steps", 70, WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 5}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, splitWindows(tt.n, tt.spec), tt.want)
		})
	}
}

func TestNewWalkForward_Validation(t *testing.T) {
	_, err := NewWalkForward(wfConfig(), meanReversionFactory(),
		WindowSpec{TrainBars: 0, TestBars: 20, StepBars: 20}, sawtoothBars(100), nil)
	assert.ErrorIs(t, err, ErrBadWindow)

	_, err = NewWalkForward(wfConfig(), meanReversionFactory(),
		WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, sawtoothBars(30), nil)
	assert.ErrorIs(t, err, ErrInsufficientBars)

	_, err = NewWalkForward(wfConfig(), nil,
		WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, sawtoothBars(100), nil)
	assert.ErrorIs(t, err, engine.ErrConfig)
}

func TestWalkForward_Run(t *testing.T) {
	wf, err := NewWalkForward(wfConfig(), meanReversionFactory(),
		WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, sawtoothBars(100), nil)
	require.NoError(t, err)
	require.Equal(t, 3, wf.FoldCount())

	report, err := wf.Run(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, report.Folds, 3)

	for i, fold := range report.Folds {
		assert.Equal(t, i, fold.Index)
		assert.Equal(t, fold.TrainEnd, fold.TestStart, "test slice must start where train ends")
		if fold.Degenerate {
			assert.True(t, math.IsNaN(fold.Degradation))
		}
	}
}

func TestWalkForward_DegenerateFoldReportsNaN(t *testing.T) {
	// A flat tape produces no trades: train Sharpe is NaN, so every fold
	// must be recorded as degenerate with a NaN degradation, not dropped
	// and not a crash.
	wf, err := NewWalkForward(wfConfig(), meanReversionFactory(),
		WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, flatBars(100), nil)
	require.NoError(t, err)

	report, err := wf.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, len(report.Folds), report.DegenerateFolds)
	for _, fold := range report.Folds {
		assert.True(t, math.IsNaN(fold.Degradation))
	}
	assert.True(t, math.IsNaN(report.MeanTestSharpe))
}

func TestDegradation(t *testing.T) {
	tests := []struct {
		name           string
		train, test    float64
		want           float64
		wantDegenerate bool
	}{
		{"half lost out of sample", 2, 1, 0.5, false},
		{"improved out of sample", 1, 2, -1, false},
		{"zero train sharpe", 0, 1, math.NaN(), true},
		{"negative train sharpe", -1, 1, math.NaN(), true},
		{"nan train sharpe", math.NaN(), 1, math.NaN(), true},
		{"nan test sharpe", 1, math.NaN(), math.NaN(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, degenerate := degradation(tt.train, tt.test)
			assert.Equal(t, tt.wantDegenerate, degenerate)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got))
			} else {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestWalkForward_LazyIteratorRestarts(t *testing.T) {
	wf, err := NewWalkForward(wfConfig(), meanReversionFactory(),
		WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, sawtoothBars(100), nil)
	require.NoError(t, err)

	ctx := context.Background()
	first := collectFolds(t, wf.Folds(), ctx)
	second := collectFolds(t, wf.Folds(), ctx)
	require.Len(t, first, 3)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].TrainMetrics.TradeCount, second[i].TrainMetrics.TradeCount)
		assert.Equal(t, first[i].TestMetrics.TradeCount, second[i].TestMetrics.TradeCount)
	}
}

func collectFolds(t *testing.T, it *FoldIter, ctx context.Context) []Fold {
	t.Helper()
	var folds []Fold
	for {
		fold, err := it.Next(ctx)
		require.NoError(t, err)
		if fold == nil {
			return folds
		}
		folds = append(folds, *fold)
	}
}

func TestWalkForward_Cancellation(t *testing.T) {
	wf, err := NewWalkForward(wfConfig(), meanReversionFactory(),
		WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, sawtoothBars(100), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = wf.Run(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = wf.Folds().Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkForward_RunWithSweepProgress(t *testing.T) {
	// The configured progress flag drives the fold-level bar; the per-run
	// engine bars stay suppressed inside each fold. The sweep must complete
	// normally with the bar active.
	cfg := wfConfig()
	cfg.ShowProgress = true
	wf, err := NewWalkForward(cfg, meanReversionFactory(),
		WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 20}, sawtoothBars(100), nil)
	require.NoError(t, err)

	report, err := wf.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, report.Folds, 3)
}

func TestWalkForward_DeterministicAcrossParallelism(t *testing.T) {
	spec := WindowSpec{TrainBars: 40, TestBars: 20, StepBars: 10}
	bars := sawtoothBars(120)

	serial, err := NewWalkForward(wfConfig(), meanReversionFactory(), spec, bars, nil)
	require.NoError(t, err)
	parallel, err := NewWalkForward(wfConfig(), meanReversionFactory(), spec, bars, nil)
	require.NoError(t, err)

	a, err := serial.Run(context.Background(), 1)
	require.NoError(t, err)
	b, err := parallel.Run(context.Background(), 8)
	require.NoError(t, err)

	require.Equal(t, len(a.Folds), len(b.Folds))
	for i := range a.Folds {
		assertSameSummary(t, a.Folds[i].TrainMetrics, b.Folds[i].TrainMetrics)
		assertSameSummary(t, a.Folds[i].TestMetrics, b.Folds[i].TestMetrics)
	}
}

// assertSameSummary compares field by field because NaN sentinels defeat a
// straight struct equality check.
func assertSameSummary(t *testing.T, a, b metrics.Summary) {
	t.Helper()
	assert.Equal(t, a.TradeCount, b.TradeCount)
	assertSameFloat(t, a.Sharpe, b.Sharpe)
	assertSameFloat(t, a.Sortino, b.Sortino)
	assertSameFloat(t, a.MaxDrawdown, b.MaxDrawdown)
	assertSameFloat(t, a.Calmar, b.Calmar)
	assertSameFloat(t, a.WinRate, b.WinRate)
	assertSameFloat(t, a.ProfitFactor, b.ProfitFactor)
}

func assertSameFloat(t *testing.T, a, b float64) {
	t.Helper()
	if math.IsNaN(a) {
		assert.True(t, math.IsNaN(b))
		return
	}
	assert.Equal(t, a, b)
}
