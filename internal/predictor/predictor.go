// Package predictor implements the adaptive LL(*) prediction algorithm:
// the top-level drive loop that walks (and lazily extends) a decision's DFA
// in SLL mode, fails over to full-context (LL) prediction on conflict,
// hoists semantic predicates into DFA accept states, and reports
// ambiguity/context-sensitivity events. It is the one package that wires
// every other component together into the single entry point a generated
// parser actually calls.
package predictor

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dekarrin/allstar/internal/atn"
	"github.com/dekarrin/allstar/internal/dfacache"
	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/perrors"
	"github.com/dekarrin/allstar/internal/predconfig"
	"github.com/dekarrin/allstar/internal/predictmode"
	"github.com/dekarrin/allstar/internal/ptrace"
	"github.com/dekarrin/allstar/internal/reach"
	"github.com/dekarrin/allstar/internal/semantic"
	"github.com/dekarrin/allstar/internal/tokenstream"
	"github.com/dekarrin/allstar/internal/util"
)

// Predictor is the adaptive prediction engine for one ATN. It is safe for
// concurrent use by multiple parser instances: all shared mutable state
// lives in its DFA cache and prediction-context cache, both of which
// serialize their own mutation.
type Predictor struct {
	Graph *atn.Graph
	DFAs  *dfacache.Cache
	Cache *pcontext.Cache
	Eval  semantic.Evaluator

	tracer *ptrace.Tracer
	mode   predictmode.Mode
}

// New returns a Predictor over graph, lazily building DFAs into dfas and
// interning prediction contexts through cache. eval services semantic
// predicate evaluation; it may be nil for grammars with no predicates.
func New(graph *atn.Graph, dfas *dfacache.Cache, cache *pcontext.Cache, eval semantic.Evaluator) *Predictor {
	return &Predictor{
		Graph:  graph,
		DFAs:   dfas,
		Cache:  cache,
		Eval:   eval,
		tracer: ptrace.New(),
		mode:   predictmode.LL,
	}
}

// SetTrace installs t as the predictor's trace/event sink, replacing
// whatever was registered before (including the default no-op Tracer).
func (pr *Predictor) SetTrace(t *ptrace.Tracer) {
	if t == nil {
		t = ptrace.New()
	}
	pr.tracer = t
}

// SetPredictionMode changes how conflicts are classified and full-context
// prediction terminates.
func (pr *Predictor) SetPredictionMode(m predictmode.Mode) {
	pr.mode = m
}

// PredictionMode returns the currently configured mode.
func (pr *Predictor) PredictionMode() predictmode.Mode {
	return pr.mode
}

// ClearDFA drops decision's interned DFA, forcing it to be rebuilt from
// scratch on the next Predict call.
func (pr *Predictor) ClearDFA(decision int) {
	pr.DFAs.Clear(decision)
}

// ClearAllDFAs drops every decision's interned DFA.
func (pr *Predictor) ClearAllDFAs() {
	pr.DFAs.ClearAll()
}

// Predict chooses the alternative to take at decision, given the real call
// stack outerCtx (nil for the outermost rule). It returns a 1-based
// alternative index, or an error (always a perrors.NoViableAlternative) if
// none is viable. input's position is restored to its entry value on every
// exit path.
func (pr *Predictor) Predict(input tokenstream.Stream, decision int, outerCtx *pcontext.RuleInvocation) (int, error) {
	startIndex := input.Index()
	handle := input.Mark()
	defer func() {
		input.Seek(startIndex)
		input.Release(handle)
	}()

	mergeCache := pcontext.NewMergeCache()
	dfa := pr.DFAs.DFAFor(decision)
	decState := pr.Graph.DecisionState(decision)

	sllParams := reach.Params{
		Graph: pr.Graph, Cache: pr.Cache, MergeCache: mergeCache,
		Eval: pr.Eval, Input: input, StartIndex: startIndex, FullCtx: false,
	}

	D := dfa.Start
	if D == nil {
		startConfigs := reach.ComputeStartState(sllParams, decState, pcontext.Empty)
		D = pr.DFAs.SetStart(decision, pr.buildState(startConfigs))
	}

	t := input.LA(1)
	for {
		edge := D.Edge(t)
		if edge == nil {
			reachSet := reach.Reach(sllParams, D.Configs, t)
			if reachSet == nil {
				edge = pr.DFAs.AddEdge(decision, D, t, dfacache.Error)
			} else {
				edge = pr.DFAs.AddEdge(decision, D, t, pr.buildState(reachSet))
			}
		}

		if edge == dfacache.Error {
			if alt := pr.getAltThatFinishedDecisionEntryRule(D.Configs); alt != predconfig.InvalidAlt {
				return alt, nil
			}
			return 0, perrors.NoViableAlternative(decision, startIndex, input.Index(), offendingToken(input), pr.expectedTokenLabels(D.Configs)...)
		}
		D = edge

		if D.RequiresFullContext && pr.mode != predictmode.SLL {
			if len(D.Predicates) > 0 {
				if succeeding := pr.evalPredicatesAtStartIndex(input, D.Predicates, startIndex); len(succeeding) == 1 {
					return succeeding[0], nil
				}
			}
			return pr.execFullContext(input, decision, outerCtx, startIndex, mergeCache)
		}

		if D.IsAcceptState {
			return pr.resolveAccept(D, input, decision, startIndex)
		}

		if t != tokenstream.EOF {
			input.Consume()
		}
		t = input.LA(1)
	}
}

// buildState turns a freshly computed config set into a DFA state, deciding
// acceptance (a unique alt), full-context escalation (an SLL-unresolvable
// conflict), and predicate hoisting.
func (pr *Predictor) buildState(configs *predconfig.Set) *dfacache.State {
	st := &dfacache.State{Configs: configs}

	if uniqueAlt := configs.UniqueAlt(); uniqueAlt != predconfig.InvalidAlt {
		st.IsAcceptState = true
		st.Prediction = uniqueAlt
	} else {
		subsets := configs.ConflictingAltSubsets()
		if predictmode.HasSLLConflictTerminatingPrediction(subsets, pr.hasConfigInRuleStopState(configs)) {
			st.RequiresFullContext = true
			// Predict checks RequiresFullContext before IsAcceptState, so in
			// LL modes this state fails over; a predictor pinned in SLL mode
			// instead stops here and takes the lowest conflicting alt.
			st.IsAcceptState = true
			if min, ok := predconfig.Alts(subsets).Minimum(); ok {
				st.Prediction = min
			}
		}
	}

	if (st.IsAcceptState || st.RequiresFullContext) && configs.HasSemanticContext {
		pr.hoistPredicates(st, configs)
	}

	return st
}

func (pr *Predictor) hasConfigInRuleStopState(configs *predconfig.Set) bool {
	for _, c := range configs.Elements() {
		if pr.Graph.State(c.State).Kind == atn.StateRuleStop {
			return true
		}
	}
	return false
}

// hoistPredicates collects the alts worth guarding (the unique alt, or
// every alt in conflict), ORs together each alt's member configs' semantic
// contexts, and if any of those isn't trivially true, installs the
// (pred,alt) pairs and forces runtime evaluation by marking the state's
// prediction invalid.
func (pr *Predictor) hoistPredicates(st *dfacache.State, configs *predconfig.Set) {
	var alts *util.BitSet
	if uniqueAlt := configs.UniqueAlt(); uniqueAlt != predconfig.InvalidAlt {
		alts = util.BitSetOf(uniqueAlt)
	} else {
		alts = predconfig.Alts(configs.ConflictingAltSubsets())
	}

	entries := make([]dfacache.PredicateEntry, 0, alts.Len())
	anyNonTrivial := false
	for _, alt := range alts.Elements() {
		var operands []semantic.Context
		for _, c := range configs.Elements() {
			if c.Alt == alt {
				operands = append(operands, c.SemCtx)
			}
		}
		combined := semantic.Or(operands...)
		if !combined.IsNone() {
			anyNonTrivial = true
		}
		entries = append(entries, dfacache.PredicateEntry{Pred: combined, Alt: alt})
	}

	if !anyNonTrivial {
		return
	}

	st.Predicates = entries
	st.Prediction = dfacache.InvalidPrediction
	st.IsAcceptState = true
}

// getAltThatFinishedDecisionEntryRule returns the lowest alt among configs
// that either dipped into outer context (fell off the end of a rule with no
// further caller) or sit on a rule-stop state with an exhausted (empty)
// context; such an alt can legally end the decision's rule here even though
// the lookahead dead-ended.
func (pr *Predictor) getAltThatFinishedDecisionEntryRule(configs *predconfig.Set) int {
	alts := util.NewBitSet()
	for _, c := range configs.Elements() {
		if c.ReachesIntoOuterContext > 0 {
			alts.Add(c.Alt)
			continue
		}
		if pr.Graph.State(c.State).Kind == atn.StateRuleStop && pcontext.IsEmpty(c.Context) {
			alts.Add(c.Alt)
		}
	}
	if min, ok := alts.Minimum(); ok {
		return min
	}
	return predconfig.InvalidAlt
}

// resolveAccept returns D's prediction, evaluating any hoisted predicates
// first if present.
func (pr *Predictor) resolveAccept(D *dfacache.State, input tokenstream.Stream, decision, startIndex int) (int, error) {
	if len(D.Predicates) == 0 {
		return D.Prediction, nil
	}

	succeeding := pr.evalPredicatesAtStartIndex(input, D.Predicates, startIndex)
	if len(succeeding) == 0 {
		return 0, perrors.NoViableAlternative(decision, startIndex, input.Index(), offendingToken(input))
	}
	if len(succeeding) > 1 {
		attemptID := ptrace.NewAttemptID()
		pr.tracer.Ambiguity(attemptID, decision, startIndex, input.Index(), true, util.BitSetOf(succeeding...), D.Configs)
	}
	return succeeding[0], nil
}

func (pr *Predictor) evalPredicatesAtStartIndex(input tokenstream.Stream, predicates []dfacache.PredicateEntry, startIndex int) []int {
	mark := input.Mark()
	saved := input.Index()
	input.Seek(startIndex)

	var succeeding []int
	for _, pe := range predicates {
		if pe.Pred.Eval(pr.Eval) {
			succeeding = append(succeeding, pe.Alt)
		}
	}

	input.Seek(saved)
	input.Release(mark)
	sort.Ints(succeeding)
	return succeeding
}

// execFullContext recomputes a start set under the real call stack, then
// advances token by token until a unique alt emerges (reporting context
// sensitivity) or, in exact-ambiguity mode, until the conflict provably
// can't be resolved by more input (reporting ambiguity).
func (pr *Predictor) execFullContext(input tokenstream.Stream, decision int, outerCtx *pcontext.RuleInvocation, startIndex int, mergeCache *pcontext.MergeCache) (int, error) {
	decState := pr.Graph.DecisionState(decision)
	rootCtx := pcontext.FromRuleContext(pr.Cache, outerCtx)

	p := reach.Params{
		Graph: pr.Graph, Cache: pr.Cache, MergeCache: mergeCache,
		Eval: pr.Eval, Input: input, StartIndex: startIndex, FullCtx: true,
	}

	configs := reach.ComputeStartState(p, decState, rootCtx)
	input.Seek(startIndex)
	t := input.LA(1)

	attemptID := ptrace.NewAttemptID()
	pr.tracer.AttemptingFullContext(attemptID, decision, startIndex, input.Index(), predconfig.Alts(configs.ConflictingAltSubsets()), configs)

	for {
		reachSet := reach.Reach(p, configs, t)
		if reachSet == nil {
			if alt := pr.getAltThatFinishedDecisionEntryRule(configs); alt != predconfig.InvalidAlt {
				return alt, nil
			}
			return 0, perrors.NoViableAlternative(decision, startIndex, input.Index(), offendingToken(input), pr.expectedTokenLabels(configs)...)
		}
		configs = reachSet

		if uniqueAlt := configs.UniqueAlt(); uniqueAlt != predconfig.InvalidAlt {
			pr.tracer.ContextSensitivity(attemptID, decision, startIndex, input.Index(), uniqueAlt, configs)
			return uniqueAlt, nil
		}

		subsets := configs.ConflictingAltSubsets()
		if pr.mode != predictmode.LLExactAmbigDetection {
			if alt := predictmode.ResolvesToJustOneViableAlt(subsets); alt != 0 {
				pr.tracer.Ambiguity(attemptID, decision, startIndex, input.Index(), false, predconfig.Alts(subsets), configs)
				return alt, nil
			}
		} else if predictmode.AllSubsetsConflict(subsets) && predictmode.AllSubsetsEqual(subsets) {
			alt := predictmode.GetSingleViableAlt(subsets)
			pr.tracer.Ambiguity(attemptID, decision, startIndex, input.Index(), true, predconfig.Alts(subsets), configs)
			return alt, nil
		}

		if t != tokenstream.EOF {
			input.Consume()
		}
		t = input.LA(1)
	}
}

func offendingToken(input tokenstream.Stream) string {
	return input.LT(1).String()
}

// expectedTokenLabels collects the human-rendered labels of every token a
// dead-end config set's member states would have accepted, for
// perrors.NoViableAlternative's "expected X, Y, or Z" diagnostic. Only
// single-token transitions (atoms, explicit ranges) contribute a concrete
// label; interval sets contribute their bounds rather than every member,
// keeping the list short.
func (pr *Predictor) expectedTokenLabels(configs *predconfig.Set) []string {
	if configs == nil {
		return nil
	}

	seen := map[string]bool{}
	var labels []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			labels = append(labels, s)
		}
	}

	for _, c := range configs.Elements() {
		st := pr.Graph.State(c.State)
		for _, tr := range st.Transitions {
			switch t := tr.(type) {
			case atn.AtomTransition:
				add(strconv.Itoa(t.Label))
			case atn.RangeTransition:
				add(fmt.Sprintf("%d..%d", t.Lo, t.Hi))
			case atn.SetTransition:
				for _, iv := range t.Intervals {
					add(fmt.Sprintf("%d..%d", iv.Lo, iv.Hi))
				}
			}
		}
	}

	sort.Strings(labels)
	return labels
}
