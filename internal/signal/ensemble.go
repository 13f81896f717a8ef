package signal

import (
	"errors"

	"intrasim/internal/indicator"
	"intrasim/types"
)

var (
	ErrNoMembers = errors.New("ensemble requires at least one member")
	ErrBadQuorum = errors.New("quorum must be within (0, 1]")
	ErrBadWeight = errors.New("member weight must be positive")
)

// voteOrder fixes the tie-break so identical inputs always yield the
// identical decision regardless of map iteration.
var voteOrder = []types.Action{types.ActionBuy, types.ActionSell, types.ActionClose, types.ActionHold}

// Member is one weighted provider inside an ensemble.
type Member struct {
	Provider Provider
	Weight   float64
}

// Ensemble combines weighted providers under a quorum rule. It implements
// Provider itself, so the engine cannot tell a committee from a single
// strategy.
type Ensemble struct {
	members []Member
	quorum  float64
	total   float64
}

func NewEnsemble(quorum float64, members ...Member) (*Ensemble, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	if quorum <= 0 || quorum > 1 {
		return nil, ErrBadQuorum
	}
	total := 0.0
	for _, m := range members {
		if m.Provider == nil {
			return nil, ErrNilProvider
		}
		if m.Weight <= 0 {
			return nil, ErrBadWeight
		}
		total += m.Weight
	}
	return &Ensemble{members: members, quorum: quorum, total: total}, nil
}

func (e *Ensemble) Name() string { return "ensemble" }

// Votes returns the weight share each action received, normalized to sum 1.
func (e *Ensemble) Votes(snap indicator.Snapshot) map[types.Action]float64 {
	votes := make(map[types.Action]float64, len(voteOrder))
	for _, m := range e.members {
		votes[m.Provider.Decide(snap)] += m.Weight / e.total
	}
	return votes
}

// Decide emits the plurality action only when its weight share reaches the
// quorum; anything short of consensus is a Hold.
func (e *Ensemble) Decide(snap indicator.Snapshot) types.Action {
	votes := e.Votes(snap)

	top := types.ActionHold
	topShare := 0.0
	for _, action := range voteOrder {
		if share := votes[action]; share > topShare {
			top = action
			topShare = share
		}
	}

	if topShare >= e.quorum {
		return top
	}
	return types.ActionHold
}
