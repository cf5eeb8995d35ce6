// Package reach implements the epsilon-closure and token-reach computations
// over ATN configuration sets: closure chases epsilon, rule-call, predicate,
// precedence and action transitions to find every config reachable without
// consuming input; reach advances a closure set by exactly one token.
package reach

import (
	"fmt"

	"github.com/dekarrin/allstar/internal/atn"
	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/predconfig"
	"github.com/dekarrin/allstar/internal/semantic"
	"github.com/dekarrin/allstar/internal/tokenstream"
)

// Params bundles the collaborators closure and reach need: the static ATN,
// the shared prediction-context interning caches, the predicate evaluator
// and input stream (for evaluating predicates at StartIndex in full-context
// mode), and the mode (SLL vs full-context) currently in effect.
type Params struct {
	Graph      *atn.Graph
	Cache      *pcontext.Cache
	MergeCache *pcontext.MergeCache
	Eval       semantic.Evaluator
	Input      tokenstream.Stream
	StartIndex int
	FullCtx    bool
}

type closureCtx struct {
	Params
	busy map[string]bool
}

func configKey(c predconfig.Config) string {
	return fmt.Sprintf("%d,%d,%s,%s", c.State, c.Alt, semantic.String(c.SemCtx), pcontext.Key(c.Context))
}

// Closure computes the epsilon-closure of seed into result. collectPredicates
// controls whether predicate/precedence transitions encountered along the
// way take effect: in full-context mode a predicate is evaluated on the spot
// and a failing one drops the branch; in SLL mode a context-independent
// predicate is AND'd into the config's semantic context and a
// context-dependent one is skipped; precedence predicates are always AND'd.
// It is suppressed for the remainder of a branch after crossing an ACTION
// transition.
func Closure(p Params, seed predconfig.Config, result *predconfig.Set, collectPredicates bool) {
	cc := &closureCtx{Params: p, busy: make(map[string]bool)}
	cc.closureCheckingStopState(seed, 0, collectPredicates, result)
}

func (cc *closureCtx) addConfig(result *predconfig.Set, c predconfig.Config) {
	result.Add(c, cc.Cache, cc.MergeCache)
}

// closureCheckingStopState handles configs sitting on a RuleStopState:
// popping the GSS one level per parallel stack top, or emitting a
// bottomed-out config when the call context is genuinely empty.
func (cc *closureCtx) closureCheckingStopState(c predconfig.Config, depth int, collectPredicates bool, result *predconfig.Set) {
	st := cc.Graph.State(c.State)
	if st.Kind != atn.StateRuleStop {
		cc.closure_(c, depth, collectPredicates, result)
		return
	}

	if pcontext.IsEmpty(c.Context) {
		if cc.FullCtx {
			cc.addConfig(result, c)
			return
		}
		// SLL, no call-context info at all: this path has fallen off the
		// bottom of every known stack. Retain the stop-state config itself;
		// getAltThatFinishedDecisionEntryRule and friends key off exactly
		// this shape to recognize "this alt can finish here."
		cc.addConfig(result, c)
		return
	}

	for i := 0; i < c.Context.Size(); i++ {
		rs := c.Context.ReturnStateAt(i)
		if rs == pcontext.EmptyReturnState {
			if cc.FullCtx {
				cc.addConfig(result, c.WithContext(pcontext.Empty))
			} else {
				bumped := c.WithReachesIntoOuterContext(c.ReachesIntoOuterContext + 1)
				result.DipsIntoOuterContext = true
				cc.addConfig(result, bumped.WithContext(pcontext.Empty))
			}
			continue
		}

		parent := c.Context.ParentAt(i)
		popped := predconfig.Config{
			State:                   rs,
			Alt:                     c.Alt,
			Context:                 parent,
			SemCtx:                  c.SemCtx,
			ReachesIntoOuterContext: c.ReachesIntoOuterContext,
		}
		newDepth := depth
		if depth >= 0 {
			newDepth = depth - 1
		}

		key := configKey(popped)
		if cc.busy[key] {
			continue
		}
		cc.busy[key] = true
		cc.closureCheckingStopState(popped, newDepth, collectPredicates, result)
	}
}

func allEpsilon(st *atn.State) bool {
	for _, tr := range st.Transitions {
		if !isEpsilonLike(tr) {
			return false
		}
	}
	return true
}

func isEpsilonLike(tr atn.Transition) bool {
	switch tr.Kind() {
	case atn.TransEpsilon, atn.TransRule, atn.TransPredicate, atn.TransPrecedence, atn.TransAction:
		return true
	default:
		return false
	}
}

// closure_ adds c to result if its state has a non-epsilon transition
// (meaning c itself is a real, token-consuming position worth keeping), then
// follows every epsilon-like transition out of c.state.
func (cc *closureCtx) closure_(c predconfig.Config, depth int, collectPredicates bool, result *predconfig.Set) {
	st := cc.Graph.State(c.State)
	if !allEpsilon(st) {
		cc.addConfig(result, c)
	}

	for _, tr := range st.Transitions {
		if !isEpsilonLike(tr) {
			continue
		}

		next, newDepth, childCollect, ok := cc.epsilonTarget(c, tr, depth, collectPredicates)
		if !ok {
			continue
		}

		key := configKey(next)
		if cc.busy[key] {
			continue
		}
		cc.busy[key] = true
		cc.closureCheckingStopState(next, newDepth, childCollect, result)
	}
}

// epsilonTarget computes the config reached by following tr from c,
// applying the per-transition-kind rules. ok is false when the transition
// should produce no successor at all (a failed context-independent
// predicate evaluated eagerly in full-context mode).
func (cc *closureCtx) epsilonTarget(c predconfig.Config, tr atn.Transition, depth int, collectPredicates bool) (next predconfig.Config, newDepth int, childCollect bool, ok bool) {
	newDepth = depth
	childCollect = collectPredicates
	next = predconfig.Config{
		State:                   tr.Target(),
		Alt:                     c.Alt,
		Context:                 c.Context,
		SemCtx:                  c.SemCtx,
		ReachesIntoOuterContext: c.ReachesIntoOuterContext,
	}

	switch t := tr.(type) {
	case atn.EpsilonTransition:
		// nothing further to do: target/context/semCtx already set above.

	case atn.RuleTransition:
		next.Context = pcontext.NewSingleton(c.Context, t.FollowState)
		if depth >= 0 {
			newDepth = depth + 1
		}

	case atn.PredicateTransition:
		satisfied := !t.CtxDependent || cc.FullCtx
		if collectPredicates && satisfied {
			if cc.FullCtx {
				if !cc.evalAtStartIndex(t.RuleIndex, t.PredIndex) {
					return predconfig.Config{}, 0, false, false
				}
			} else {
				pred := semantic.Predicate{RuleIndex: t.RuleIndex, PredIndex: t.PredIndex, CtxDependent: t.CtxDependent}
				next.SemCtx = semantic.And(c.SemCtx, pred)
			}
		}

	case atn.PrecedenceTransition:
		if collectPredicates {
			next.SemCtx = semantic.And(c.SemCtx, semantic.PrecedencePredicate{Level: t.Precedence})
		}

	case atn.ActionTransition:
		childCollect = false

	default:
		return predconfig.Config{}, 0, false, false
	}

	return next, newDepth, childCollect, true
}

// evalAtStartIndex seeks the input to the decision's start index, evaluates
// the predicate, and restores the prior position; predicates are always a
// function of the parser state at the position prediction began.
func (cc *closureCtx) evalAtStartIndex(ruleIndex, predIndex int) bool {
	if cc.Input == nil || cc.Eval == nil {
		return true
	}
	mark := cc.Input.Mark()
	saved := cc.Input.Index()
	cc.Input.Seek(cc.StartIndex)
	ok := cc.Eval.EvalPredicate(ruleIndex, predIndex)
	cc.Input.Seek(saved)
	cc.Input.Release(mark)
	return ok
}
