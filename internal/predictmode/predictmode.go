// Package predictmode implements the conflict/ambiguity classification
// predicates of adaptive prediction: pure functions over the alt-subset
// partitions predconfig.Set.ConflictingAltSubsets produces, used by the
// predictor to decide when an SLL attempt must fail over to full context
// and when a full-context attempt has converged on an answer.
package predictmode

import "github.com/dekarrin/allstar/internal/util"

// Mode selects how the predictor reports and terminates full-context
// prediction.
type Mode int

const (
	// SLL never switches to full context; a conflict state resolves to its
	// lowest conflicting alt (or to its hoisted predicates).
	SLL Mode = iota

	// LL fails over to full context and stops as soon as every alt-subset's
	// minimum alt agrees (see ResolvesToJustOneViableAlt).
	LL

	// LLExactAmbigDetection additionally keeps advancing past a resolvable
	// conflict until it can prove no further input would discriminate the
	// remaining alternatives (an exact ambiguity).
	LLExactAmbigDetection
)

// HasSLLConflictTerminatingPrediction reports whether the SLL attempt should
// terminate at this config set: either some config sits in a rule-stop state
// (SLL cannot trust lookahead past the end of the decision rule without the
// real caller context), or the alt-subset partitions disagree while no single
// ATN state carries only one alt.
func HasSLLConflictTerminatingPrediction(subsets []*util.BitSet, hasConfigInRuleStopState bool) bool {
	if hasConfigInRuleStopState {
		return true
	}
	return hasConflictingAltSet(subsets) && !hasStateAssociatedWithOneAlt(subsets)
}

func hasConflictingAltSet(subsets []*util.BitSet) bool {
	for _, bs := range subsets {
		if bs.Len() > 1 {
			return true
		}
	}
	return false
}

func hasStateAssociatedWithOneAlt(subsets []*util.BitSet) bool {
	for _, bs := range subsets {
		if bs.Len() == 1 {
			return true
		}
	}
	return false
}

// ResolvesToJustOneViableAlt reports the one alt a full-context prediction
// can stop at, or 0 if the subsets still disagree. An alt is viable for a
// subset when it is that subset's minimum (conflicting alts always resolve
// to the lowest), so the set resolves exactly when every subset shares the
// same minimum.
func ResolvesToJustOneViableAlt(subsets []*util.BitSet) int {
	return GetSingleViableAlt(subsets)
}

// AllSubsetsConflict reports whether every alt-subset has more than one
// member (no subset has already settled on a single alt).
func AllSubsetsConflict(subsets []*util.BitSet) bool {
	for _, bs := range subsets {
		if bs.Len() <= 1 {
			return false
		}
	}
	return true
}

// AllSubsetsEqual reports whether every alt-subset is the same set of alts.
func AllSubsetsEqual(subsets []*util.BitSet) bool {
	if len(subsets) == 0 {
		return true
	}
	first := subsets[0]
	for _, bs := range subsets[1:] {
		if !bs.Equal(first) {
			return false
		}
	}
	return true
}

// GetSingleViableAlt collects each subset's minimum alt; if every subset
// agrees on the same one it is returned, otherwise 0.
func GetSingleViableAlt(subsets []*util.BitSet) int {
	viable := util.NewBitSet()
	for _, bs := range subsets {
		min, ok := bs.Minimum()
		if !ok {
			continue
		}
		viable.Add(min)
		if viable.Len() > 1 {
			return 0
		}
	}

	if min, ok := viable.Minimum(); ok {
		return min
	}
	return 0
}
