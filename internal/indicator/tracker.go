package indicator

import (
	"math"

	"intrasim/types"
)

// Config holds the feature layer periods. All values must be positive; the
// run configuration is validated before a Tracker is built.
type Config struct {
	RSIPeriod int
	EMAPeriod int
	VolWindow int
	ERWindow  int
}

// Tracker maintains rolling indicator state for a single run. It must be fed
// every bar exactly once, in timestamp order, and is never shared across
// concurrent runs.
type Tracker struct {
	cfg Config

	count     int
	prevClose float64

	// Wilder RSI
	changes  int
	sumGain  float64
	sumLoss  float64
	avgGain  float64
	avgLoss  float64
	rsiReady bool

	// EMA, seeded with the first close
	ema float64

	// rolling windows
	returns []float64
	closes  []float64
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Update consumes one bar and returns the snapshot reflecting all bars seen
// so far, including this one.
func (t *Tracker) Update(bar types.Bar) Snapshot {
	c, _ := bar.Close.Float64()
	t.count++

	snap := Undefined()
	snap.Close = c

	if t.count == 1 {
		t.ema = c
		t.prevClose = c
		t.closes = append(t.closes, c)
		return snap
	}

	change := c - t.prevClose
	t.updateRSI(change)

	alpha := 2.0 / (float64(t.cfg.EMAPeriod) + 1.0)
	t.ema = c*alpha + t.ema*(1.0-alpha)

	if t.prevClose != 0 {
		t.returns = append(t.returns, change/t.prevClose)
		if len(t.returns) > t.cfg.VolWindow {
			t.returns = t.returns[1:]
		}
	}

	t.closes = append(t.closes, c)
	if len(t.closes) > t.cfg.ERWindow+1 {
		t.closes = t.closes[1:]
	}

	t.prevClose = c

	if t.rsiReady {
		snap.RSI = t.rsi()
	}
	if t.count >= t.cfg.EMAPeriod {
		snap.EMA = t.ema
	}
	if len(t.returns) == t.cfg.VolWindow && t.cfg.VolWindow >= 2 {
		snap.Volatility = sampleStdev(t.returns)
	}
	if len(t.closes) == t.cfg.ERWindow+1 {
		snap.EfficiencyRatio = efficiencyRatio(t.closes)
	}
	return snap
}

func (t *Tracker) updateRSI(change float64) {
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	period := float64(t.cfg.RSIPeriod)
	t.changes++
	switch {
	case t.changes < t.cfg.RSIPeriod:
		t.sumGain += gain
		t.sumLoss += loss
	case t.changes == t.cfg.RSIPeriod:
		t.sumGain += gain
		t.sumLoss += loss
		t.avgGain = t.sumGain / period
		t.avgLoss = t.sumLoss / period
		t.rsiReady = true
	default:
		t.avgGain = (t.avgGain*(period-1) + gain) / period
		t.avgLoss = (t.avgLoss*(period-1) + loss) / period
	}
}

// rsi clamps the degenerate zero-loss denominator instead of erroring: all
// gains reads 100, a perfectly flat window reads 50.
func (t *Tracker) rsi() float64 {
	if t.avgLoss == 0 {
		if t.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := t.avgGain / t.avgLoss
	return 100 - 100/(1+rs)
}

func sampleStdev(xs []float64) float64 {
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
	return math.Sqrt(variance / (n - 1))
}

// efficiencyRatio is net directional move over cumulative absolute move. A
// perfectly flat window has no path to measure against and reads 0.
func efficiencyRatio(closes []float64) float64 {
	net := math.Abs(closes[len(closes)-1] - closes[0])
	path := 0.0
	for i := 1; i < len(closes); i++ {
		path += math.Abs(closes[i] - closes[i-1])
	}
	if path == 0 {
		return 0
	}
	return net / path
}
