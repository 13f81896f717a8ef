// Package config loads the YAML run configuration and turns it into the
// explicit values the engine and validation suites consume. Nothing in here
// is global; callers copy the built values into each run.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"intrasim/internal/engine"
	"intrasim/internal/indicator"
	"intrasim/internal/risk"
	"intrasim/internal/signal"
	"intrasim/internal/validate"
	"intrasim/types"
)

// Strategy is one provider definition. Regime entries nest a Trend and a
// Revert definition and delegate between them on the efficiency ratio.
type Strategy struct {
	Kind   string  `yaml:"kind"`
	Weight float64 `yaml:"weight"`

	// mean_reversion
	EnterBelow float64 `yaml:"enter_below"`
	ExitAbove  float64 `yaml:"exit_above"`

	// trend_follow
	MinEfficiency float64 `yaml:"min_efficiency"`

	// regime
	TrendingAbove float64   `yaml:"trending_above"`
	Trend         *Strategy `yaml:"trend"`
	Revert        *Strategy `yaml:"revert"`
}

type Indicators struct {
	RSIPeriod int `yaml:"rsi_period"`
	EMAPeriod int `yaml:"ema_period"`
	VolWindow int `yaml:"vol_window"`
	ERWindow  int `yaml:"er_window"`
}

type Risk struct {
	MaxAllocation   string  `yaml:"max_allocation"`
	DrawdownLimit   float64 `yaml:"drawdown_limit"`
	RecoveryBand    float64 `yaml:"recovery_band"`
	VolatilityFloor float64 `yaml:"volatility_floor"`
}

type Ensemble struct {
	Quorum float64 `yaml:"quorum"`
}

type WalkForward struct {
	TrainBars   int `yaml:"train_bars"`
	TestBars    int `yaml:"test_bars"`
	StepBars    int `yaml:"step_bars"`
	Parallelism int `yaml:"parallelism"`
}

type MonteCarlo struct {
	Trials       int     `yaml:"trials"`
	Seed         int64   `yaml:"seed"`
	Bootstrap    bool    `yaml:"bootstrap"`
	TargetSharpe float64 `yaml:"target_sharpe"`
	Parallelism  int     `yaml:"parallelism"`
}

// File mirrors the YAML document. Money amounts are strings so they go
// through decimal parsing instead of float64.
type File struct {
	Symbol         string `yaml:"symbol"`
	Timeframe      string `yaml:"timeframe"`
	StrategyID     string `yaml:"strategy_id"`
	InitialCapital string `yaml:"initial_capital"`
	FeePerOrder    string `yaml:"fee_per_order"`

	MaxHoldBars int     `yaml:"max_hold_bars"`
	OutlierCap  float64 `yaml:"outlier_cap"`
	// SessionClose is "HH:MM" UTC; empty disables the session close rule.
	SessionClose string `yaml:"session_close"`

	Indicators Indicators `yaml:"indicators"`
	Risk       Risk       `yaml:"risk"`

	Strategies []Strategy `yaml:"strategies"`
	Ensemble   Ensemble   `yaml:"ensemble"`

	WalkForward *WalkForward `yaml:"walk_forward"`
	MonteCarlo  *MonteCarlo  `yaml:"monte_carlo"`

	ShowProgress bool `yaml:"show_progress"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document.
func Parse(raw []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrConfig, err)
	}
	return &file, nil
}

// EngineConfig builds and validates the run configuration.
func (f *File) EngineConfig() (engine.Config, error) {
	capital, err := parseDecimal(f.InitialCapital, "initial_capital")
	if err != nil {
		return engine.Config{}, err
	}
	fee, err := parseDecimal(defaultStr(f.FeePerOrder, "0"), "fee_per_order")
	if err != nil {
		return engine.Config{}, err
	}
	allocation, err := parseDecimal(f.Risk.MaxAllocation, "max_allocation")
	if err != nil {
		return engine.Config{}, err
	}
	sessionClose, err := parseSessionClose(f.SessionClose)
	if err != nil {
		return engine.Config{}, err
	}

	cfg := engine.Config{
		Symbol:         f.Symbol,
		Timeframe:      types.Interval(f.Timeframe),
		StrategyID:     f.StrategyID,
		InitialCapital: capital,
		FeePerOrder:    fee,
		MaxHoldBars:    f.MaxHoldBars,
		OutlierCap:     f.OutlierCap,
		SessionClose:   sessionClose,
		Indicator: indicator.Config{
			RSIPeriod: f.Indicators.RSIPeriod,
			EMAPeriod: f.Indicators.EMAPeriod,
			VolWindow: f.Indicators.VolWindow,
			ERWindow:  f.Indicators.ERWindow,
		},
		Risk: risk.Config{
			MaxAllocation:   allocation,
			DrawdownLimit:   f.Risk.DrawdownLimit,
			RecoveryBand:    f.Risk.RecoveryBand,
			VolatilityFloor: f.Risk.VolatilityFloor,
		},
		ShowProgress: f.ShowProgress,
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// ProviderFactory builds a factory producing a fresh provider per run. A
// single strategy entry is used directly; several entries vote through an
// ensemble with the configured quorum.
func (f *File) ProviderFactory() (validate.ProviderFactory, error) {
	if len(f.Strategies) == 0 {
		return nil, fmt.Errorf("%w: at least one strategy is required", engine.ErrConfig)
	}
	// Build once up front so a bad definition fails at load time, not
	// mid-sweep.
	if _, err := f.buildProvider(); err != nil {
		return nil, err
	}
	return f.buildProvider, nil
}

func (f *File) buildProvider() (signal.Provider, error) {
	if len(f.Strategies) == 1 && f.Strategies[0].Weight == 0 {
		return buildOne(f.Strategies[0])
	}
	members := make([]signal.Member, 0, len(f.Strategies))
	for _, def := range f.Strategies {
		provider, err := buildOne(def)
		if err != nil {
			return nil, err
		}
		weight := def.Weight
		if weight == 0 {
			weight = 1
		}
		members = append(members, signal.Member{Provider: provider, Weight: weight})
	}
	if len(members) == 1 {
		return members[0].Provider, nil
	}
	return signal.NewEnsemble(f.Ensemble.Quorum, members...)
}

func buildOne(def Strategy) (signal.Provider, error) {
	switch def.Kind {
	case "mean_reversion":
		return signal.NewMeanReversion(def.EnterBelow, def.ExitAbove)
	case "trend_follow":
		return signal.NewTrendFollow(def.MinEfficiency)
	case "regime":
		if def.Trend == nil || def.Revert == nil {
			return nil, fmt.Errorf("%w: regime strategy needs trend and revert entries", engine.ErrConfig)
		}
		trending, err := buildOne(*def.Trend)
		if err != nil {
			return nil, err
		}
		reverting, err := buildOne(*def.Revert)
		if err != nil {
			return nil, err
		}
		return signal.NewRegimeSwitch(def.TrendingAbove, trending, reverting)
	default:
		return nil, fmt.Errorf("%w: unknown strategy kind %q", engine.ErrConfig, def.Kind)
	}
}

// WindowSpec returns the walk-forward window, or false when the section is
// absent.
func (f *File) WindowSpec() (validate.WindowSpec, int, bool) {
	if f.WalkForward == nil {
		return validate.WindowSpec{}, 0, false
	}
	spec := validate.WindowSpec{
		TrainBars: f.WalkForward.TrainBars,
		TestBars:  f.WalkForward.TestBars,
		StepBars:  f.WalkForward.StepBars,
	}
	return spec, f.WalkForward.Parallelism, true
}

// MonteCarloConfig returns the Monte Carlo section, or false when absent.
func (f *File) MonteCarloConfig() (validate.MonteCarloConfig, bool) {
	if f.MonteCarlo == nil {
		return validate.MonteCarloConfig{}, false
	}
	return validate.MonteCarloConfig{
		Trials:       f.MonteCarlo.Trials,
		Seed:         f.MonteCarlo.Seed,
		Bootstrap:    f.MonteCarlo.Bootstrap,
		TargetSharpe: f.MonteCarlo.TargetSharpe,
		Parallelism:  f.MonteCarlo.Parallelism,
		ShowProgress: f.ShowProgress,
	}, true
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is required", engine.ErrConfig, field)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s: %v", engine.ErrConfig, field, err)
	}
	return value, nil
}

func parseSessionClose(raw string) (int, error) {
	if raw == "" {
		return -1, nil
	}
	at, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("%w: session_close must be HH:MM, got %q", engine.ErrConfig, raw)
	}
	return at.Hour()*60 + at.Minute(), nil
}

func defaultStr(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	return raw
}
