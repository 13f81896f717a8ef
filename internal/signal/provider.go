// Package signal holds the strategy decision layer: pure providers that map
// an indicator snapshot to an action, and the weighted quorum ensemble that
// composes them. Providers must be deterministic over the snapshot, with no
// clocks and no randomness, so identical input history always produces the
// identical decision.
package signal

import (
	"intrasim/internal/indicator"
	"intrasim/types"
)

// Provider decides one action per bar from the indicator snapshot.
type Provider interface {
	Name() string
	Decide(snap indicator.Snapshot) types.Action
}
