package signal

import (
	"errors"

	"intrasim/internal/indicator"
	"intrasim/types"
)

var ErrBadThresholds = errors.New("exit threshold must be above entry threshold")

// MeanReversion buys oversold RSI and flattens once RSI swings overbought.
type MeanReversion struct {
	enterBelow float64
	exitAbove  float64
}

func NewMeanReversion(enterBelow, exitAbove float64) (*MeanReversion, error) {
	if exitAbove <= enterBelow {
		return nil, ErrBadThresholds
	}
	return &MeanReversion{enterBelow: enterBelow, exitAbove: exitAbove}, nil
}

func (m *MeanReversion) Name() string { return "mean_reversion" }

func (m *MeanReversion) Decide(snap indicator.Snapshot) types.Action {
	if !indicator.Defined(snap.RSI) {
		return types.ActionHold
	}
	switch {
	case snap.RSI < m.enterBelow:
		return types.ActionBuy
	case snap.RSI > m.exitAbove:
		return types.ActionClose
	default:
		return types.ActionHold
	}
}
