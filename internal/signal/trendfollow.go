package signal

import (
	"errors"

	"intrasim/internal/indicator"
	"intrasim/types"
)

var ErrBadEfficiency = errors.New("minimum efficiency must be within [0, 1]")

// TrendFollow rides closes above the EMA, confirmed by the efficiency ratio
// so it stays out of choppy tape, and flattens once price falls back below.
type TrendFollow struct {
	minEfficiency float64
}

func NewTrendFollow(minEfficiency float64) (*TrendFollow, error) {
	if minEfficiency < 0 || minEfficiency > 1 {
		return nil, ErrBadEfficiency
	}
	return &TrendFollow{minEfficiency: minEfficiency}, nil
}

func (f *TrendFollow) Name() string { return "trend_following" }

func (f *TrendFollow) Decide(snap indicator.Snapshot) types.Action {
	if !indicator.Defined(snap.EMA) || !indicator.Defined(snap.EfficiencyRatio) {
		return types.ActionHold
	}
	switch {
	case snap.Close > snap.EMA && snap.EfficiencyRatio >= f.minEfficiency:
		return types.ActionBuy
	case snap.Close < snap.EMA:
		return types.ActionClose
	default:
		return types.ActionHold
	}
}
