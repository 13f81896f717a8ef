// Package risk gates every proposed engine action: position sizing against
// the capital ledger, a drawdown circuit breaker with a hysteresis re-arm,
// and a realized-volatility floor on entries.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"

	"intrasim/internal/indicator"
	"intrasim/types"
)

var (
	ErrBadAllocation   = errors.New("max allocation must be within (0, 1]")
	ErrBadDrawdown     = errors.New("drawdown limit must be within (0, 1)")
	ErrBadRecoveryBand = errors.New("recovery band must be non-negative and below the drawdown limit")
	ErrBadVolFloor     = errors.New("volatility floor must be non-negative")
)

type Verdict int

const (
	Approve Verdict = iota
	Deny
	ForceExit
)

// Decision is the manager's answer for one proposed action. Quantity is only
// set on approved entries.
type Decision struct {
	Verdict  Verdict
	Quantity decimal.Decimal
	Reason   string
}

type Config struct {
	// MaxAllocation caps entry size at floor(capital * fraction / price).
	MaxAllocation decimal.Decimal
	// DrawdownLimit trips the breaker at this drawdown from the equity peak.
	DrawdownLimit float64
	// RecoveryBand re-arms only once drawdown falls below limit - band.
	RecoveryBand float64
	// VolatilityFloor denies entries while realized volatility sits below it.
	VolatilityFloor float64
}

func (c Config) Validate() error {
	if !c.MaxAllocation.IsPositive() || c.MaxAllocation.GreaterThan(decimal.NewFromInt(1)) {
		return ErrBadAllocation
	}
	if c.DrawdownLimit <= 0 || c.DrawdownLimit >= 1 {
		return ErrBadDrawdown
	}
	if c.RecoveryBand < 0 || c.RecoveryBand >= c.DrawdownLimit {
		return ErrBadRecoveryBand
	}
	if c.VolatilityFloor < 0 {
		return ErrBadVolFloor
	}
	return nil
}

// Manager is per-run state. The breaker is a two-state machine
// {armed, tripped}: it trips once drawdown from the running equity peak
// breaches the limit, and re-arms only after drawdown has recovered past the
// hysteresis band, so it cannot flap around the threshold.
type Manager struct {
	cfg     Config
	peak    decimal.Decimal
	tripped bool
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// ObserveEquity feeds one mark-to-market equity sample and advances the
// breaker state. Call once per bar, before Approve.
func (m *Manager) ObserveEquity(equity decimal.Decimal) {
	if equity.GreaterThan(m.peak) {
		m.peak = equity
	}
	if !m.peak.IsPositive() {
		return
	}

	dd, _ := m.peak.Sub(equity).Div(m.peak).Float64()
	if m.tripped {
		if dd <= m.cfg.DrawdownLimit-m.cfg.RecoveryBand {
			m.tripped = false
		}
		return
	}
	if dd >= m.cfg.DrawdownLimit {
		m.tripped = true
	}
}

// Tripped reports the current breaker state.
func (m *Manager) Tripped() bool {
	return m.tripped
}

// Approve gates a proposed action given the open-position flag, the capital
// ledger and the decision snapshot.
func (m *Manager) Approve(action types.Action, open bool, capital, price decimal.Decimal, snap indicator.Snapshot) Decision {
	if m.tripped {
		if open {
			return Decision{Verdict: ForceExit, Reason: "drawdown breaker tripped"}
		}
		if action == types.ActionBuy {
			return Decision{Verdict: Deny, Reason: "drawdown breaker tripped"}
		}
		return Decision{Verdict: Approve}
	}

	if action != types.ActionBuy {
		return Decision{Verdict: Approve}
	}

	if !indicator.Defined(snap.Volatility) || snap.Volatility < m.cfg.VolatilityFloor {
		return Decision{Verdict: Deny, Reason: "volatility below floor"}
	}

	qty := m.size(capital, price)
	if !qty.IsPositive() {
		return Decision{Verdict: Deny, Reason: "insufficient capital for one unit"}
	}
	return Decision{Verdict: Approve, Quantity: qty}
}

// size is floor(capital * maxAllocation / price), in whole units.
func (m *Manager) size(capital, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() || !capital.IsPositive() {
		return decimal.Zero
	}
	return capital.Mul(m.cfg.MaxAllocation).Div(price).Floor()
}
