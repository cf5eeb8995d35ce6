package reach

import (
	"github.com/dekarrin/allstar/internal/atn"
	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/perrors"
	"github.com/dekarrin/allstar/internal/predconfig"
	"github.com/dekarrin/allstar/internal/tokenstream"
)

// Reach advances closureSet by exactly one token t. It returns nil if no
// config survives (the caller records an edge to the error sentinel).
func Reach(p Params, closureSet *predconfig.Set, t int) *predconfig.Set {
	intermediate := predconfig.NewSet(p.FullCtx)
	var skippedStopStates []predconfig.Config

	for _, c := range closureSet.Elements() {
		st := p.Graph.State(c.State)
		if st.Kind == atn.StateRuleStop {
			perrors.Assertf(pcontext.IsEmpty(c.Context), "reach: rule-stop config %s carries non-empty context", c)
			if p.FullCtx || t == tokenstream.EOF {
				skippedStopStates = append(skippedStopStates, c)
			}
			continue
		}

		for _, tr := range st.Transitions {
			if !tr.Matches(t) {
				continue
			}
			next := predconfig.Config{
				State:                   tr.Target(),
				Alt:                     c.Alt,
				Context:                 c.Context,
				SemCtx:                  c.SemCtx,
				ReachesIntoOuterContext: c.ReachesIntoOuterContext,
			}
			intermediate.Add(next, p.Cache, p.MergeCache)
		}
	}

	var result *predconfig.Set
	if len(skippedStopStates) == 0 && (intermediate.Len() == 1 || intermediate.UniqueAlt() != predconfig.InvalidAlt) {
		result = intermediate
	} else {
		result = predconfig.NewSet(p.FullCtx)
		for _, c := range intermediate.Elements() {
			// Predicates were already resolved on the way into closureSet;
			// reach's own closure call never collects them again.
			Closure(p, c, result, false)
		}
	}

	if t == tokenstream.EOF {
		result = restrictToEOFViable(p, result)
	}

	addBack := !p.FullCtx || !anyRuleStop(p, result)
	if addBack {
		for _, c := range skippedStopStates {
			result.Add(c, p.Cache, p.MergeCache)
		}
	}

	if result.Empty() {
		return nil
	}
	return result
}

// restrictToEOFViable keeps only configs already at a rule-stop state, or at
// a state whose only outgoing transitions are epsilon-like (promoted to that
// rule's stop state). Nothing else can possibly match EOF.
func restrictToEOFViable(p Params, set *predconfig.Set) *predconfig.Set {
	restricted := predconfig.NewSet(p.FullCtx)
	for _, c := range set.Elements() {
		st := p.Graph.State(c.State)
		if st.Kind == atn.StateRuleStop {
			restricted.Add(c, p.Cache, p.MergeCache)
			continue
		}
		if allEpsilon(st) {
			stop := p.Graph.RuleStopState(st.RuleIndex)
			if stop == nil {
				continue
			}
			promoted := c
			promoted.State = stop.Number
			restricted.Add(promoted, p.Cache, p.MergeCache)
		}
	}
	return restricted
}

func anyRuleStop(p Params, set *predconfig.Set) bool {
	for _, c := range set.Elements() {
		if p.Graph.State(c.State).Kind == atn.StateRuleStop {
			return true
		}
	}
	return false
}

// ComputeStartState builds the seed config set for decisionState: one
// closure per outgoing alternative, 1-based, starting from initialContext
// (pcontext.Empty for SLL mode, the lifted outer context for full-context
// mode).
func ComputeStartState(p Params, decisionState *atn.State, initialContext pcontext.Context) *predconfig.Set {
	start := predconfig.NewSet(p.FullCtx)
	for i, tr := range decisionState.Transitions {
		alt := i + 1
		seed := predconfig.New(tr.Target(), alt, initialContext)
		Closure(p, seed, start, true)
	}
	return start
}
