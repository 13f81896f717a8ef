package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrasim/internal/engine"
	"intrasim/types"
)

const fullDocument = `
symbol: AAPL
timeframe: "60"
strategy_id: ensemble-v1
initial_capital: "10000"
fee_per_order: "1.5"
max_hold_bars: 24
outlier_cap: 0.08
session_close: "16:00"
indicators:
  rsi_period: 14
  ema_period: 20
  vol_window: 20
  er_window: 10
risk:
  max_allocation: "0.25"
  drawdown_limit: 0.2
  recovery_band: 0.05
  volatility_floor: 0.001
strategies:
  - kind: mean_reversion
    weight: 2
    enter_below: 30
    exit_above: 70
  - kind: trend_follow
    weight: 1
    min_efficiency: 0.3
ensemble:
  quorum: 0.5
walk_forward:
  train_bars: 500
  test_bars: 250
  step_bars: 250
  parallelism: 4
monte_carlo:
  trials: 1000
  seed: 42
  bootstrap: true
  target_sharpe: 1.0
  parallelism: 4
`

func TestParse_FullDocument(t *testing.T) {
	file, err := Parse([]byte(fullDocument))
	require.NoError(t, err)

	cfg, err := file.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, "AAPL", cfg.Symbol)
	assert.Equal(t, types.Hour, cfg.Timeframe)
	assert.True(t, cfg.InitialCapital.Equal(decimalFromString(t, "10000")))
	assert.True(t, cfg.FeePerOrder.Equal(decimalFromString(t, "1.5")))
	assert.Equal(t, 24, cfg.MaxHoldBars)
	assert.Equal(t, 16*60, cfg.SessionClose)
	assert.Equal(t, 14, cfg.Indicator.RSIPeriod)
	assert.True(t, cfg.Risk.MaxAllocation.Equal(decimalFromString(t, "0.25")))
	assert.Equal(t, 0.2, cfg.Risk.DrawdownLimit)

	factory, err := file.ProviderFactory()
	require.NoError(t, err)
	provider, err := factory()
	require.NoError(t, err)
	assert.Equal(t, "ensemble", provider.Name())

	spec, parallelism, ok := file.WindowSpec()
	require.True(t, ok)
	assert.Equal(t, 500, spec.TrainBars)
	assert.Equal(t, 250, spec.TestBars)
	assert.Equal(t, 4, parallelism)

	mc, ok := file.MonteCarloConfig()
	require.True(t, ok)
	assert.Equal(t, 1000, mc.Trials)
	assert.Equal(t, int64(42), mc.Seed)
	assert.True(t, mc.Bootstrap)
}

const minimalDocument = `
symbol: BTC
timeframe: "1"
strategy_id: mr-1
initial_capital: "500"
indicators:
  rsi_period: 2
  ema_period: 3
  vol_window: 2
  er_window: 2
risk:
  max_allocation: "1"
  drawdown_limit: 0.9
strategies:
  - kind: mean_reversion
    enter_below: 30
    exit_above: 70
`

func TestParse_MinimalDocumentDefaults(t *testing.T) {
	file, err := Parse([]byte(minimalDocument))
	require.NoError(t, err)

	cfg, err := file.EngineConfig()
	require.NoError(t, err)
	assert.True(t, cfg.FeePerOrder.IsZero(), "fee defaults to zero")
	assert.Equal(t, -1, cfg.SessionClose, "session close disabled when absent")
	assert.Equal(t, 0, cfg.MaxHoldBars)

	factory, err := file.ProviderFactory()
	require.NoError(t, err)
	provider, err := factory()
	require.NoError(t, err)
	assert.Equal(t, "mean_reversion", provider.Name())

	_, _, ok := file.WindowSpec()
	assert.False(t, ok)
	_, ok = file.MonteCarloConfig()
	assert.False(t, ok)
}

const regimeDocument = `
symbol: ETH
timeframe: "60"
strategy_id: regime-1
initial_capital: "1000"
indicators:
  rsi_period: 2
  ema_period: 3
  vol_window: 2
  er_window: 2
risk:
  max_allocation: "0.5"
  drawdown_limit: 0.5
strategies:
  - kind: regime
    trending_above: 0.6
    trend:
      kind: trend_follow
      min_efficiency: 0.3
    revert:
      kind: mean_reversion
      enter_below: 25
      exit_above: 75
`

func TestParse_RegimeNesting(t *testing.T) {
	file, err := Parse([]byte(regimeDocument))
	require.NoError(t, err)

	factory, err := file.ProviderFactory()
	require.NoError(t, err)
	provider, err := factory()
	require.NoError(t, err)
	assert.Equal(t, "regime_switch", provider.Name())
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"bad capital", func(f *File) { f.InitialCapital = "lots" }},
		{"missing capital", func(f *File) { f.InitialCapital = "" }},
		{"bad session close", func(f *File) { f.SessionClose = "4pm" }},
		{"bad allocation", func(f *File) { f.Risk.MaxAllocation = "one half" }},
		{"bad timeframe", func(f *File) { f.Timeframe = "42" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := Parse([]byte(fullDocument))
			require.NoError(t, err)
			tt.mutate(file)
			_, err = file.EngineConfig()
			assert.ErrorIs(t, err, engine.ErrConfig)
		})
	}
}

func TestProviderFactory_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"no strategies", func(f *File) { f.Strategies = nil }},
		{"unknown kind", func(f *File) { f.Strategies[0].Kind = "martingale" }},
		{"bad thresholds", func(f *File) { f.Strategies[0].EnterBelow = 70; f.Strategies[0].ExitAbove = 30 }},
		{"regime missing legs", func(f *File) { f.Strategies[0] = Strategy{Kind: "regime"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := Parse([]byte(fullDocument))
			require.NoError(t, err)
			tt.mutate(file)
			_, err = file.ProviderFactory()
			assert.Error(t, err)
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("symbol: [unclosed"))
	assert.ErrorIs(t, err, engine.ErrConfig)
}

func decimalFromString(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	require.NoError(t, err)
	return value
}
