package indicator

import "math"

// Snapshot is the per-bar view of the feature layer. Features that have not
// finished warming up are NaN, never a default extreme; callers must check
// Defined (or the feature-specific flags) before acting on a value.
type Snapshot struct {
	Close           float64
	RSI             float64
	EMA             float64
	Volatility      float64
	EfficiencyRatio float64
}

// Undefined returns a snapshot with every feature unset.
func Undefined() Snapshot {
	nan := math.NaN()
	return Snapshot{Close: nan, RSI: nan, EMA: nan, Volatility: nan, EfficiencyRatio: nan}
}

// Defined reports whether a single feature value is usable.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// Ready reports whether every feature has warmed up.
func (s Snapshot) Ready() bool {
	return Defined(s.RSI) && Defined(s.EMA) && Defined(s.Volatility) && Defined(s.EfficiencyRatio)
}
