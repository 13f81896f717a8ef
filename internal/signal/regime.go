package signal

import (
	"errors"

	"intrasim/internal/indicator"
	"intrasim/types"
)

var ErrNilProvider = errors.New("regime switch requires both providers")

// RegimeSwitch classifies the market per bar by efficiency ratio and
// delegates to a trending or a mean-reverting provider accordingly.
type RegimeSwitch struct {
	trendingAbove float64
	trending      Provider
	reverting     Provider
}

func NewRegimeSwitch(trendingAbove float64, trending, reverting Provider) (*RegimeSwitch, error) {
	if trending == nil || reverting == nil {
		return nil, ErrNilProvider
	}
	if trendingAbove < 0 || trendingAbove > 1 {
		return nil, ErrBadEfficiency
	}
	return &RegimeSwitch{trendingAbove: trendingAbove, trending: trending, reverting: reverting}, nil
}

func (r *RegimeSwitch) Name() string { return "regime_switch" }

func (r *RegimeSwitch) Decide(snap indicator.Snapshot) types.Action {
	if !indicator.Defined(snap.EfficiencyRatio) {
		return types.ActionHold
	}
	if snap.EfficiencyRatio >= r.trendingAbove {
		return r.trending.Decide(snap)
	}
	return r.reverting.Decide(snap)
}
