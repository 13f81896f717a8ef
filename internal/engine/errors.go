package engine

import "errors"

// Error taxonomy. Data and config errors abort a run before its loop starts;
// an invariant violation aborts mid-run and signals a core bug, never a data
// quirk, so it must surface rather than be silently corrected.
var (
	ErrNoBars            = errors.New("bar slice is empty")
	ErrBarsOutOfOrder    = errors.New("bars are not strictly increasing in time")
	ErrNonPositiveClose  = errors.New("bar close must be positive")
	ErrConfig            = errors.New("invalid configuration")
	ErrInvariantViolated = errors.New("backtest invariant violated")
)
