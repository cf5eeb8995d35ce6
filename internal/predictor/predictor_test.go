package predictor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/allstar/internal/atn"
	"github.com/dekarrin/allstar/internal/dfacache"
	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/perrors"
	"github.com/dekarrin/allstar/internal/predictmode"
	"github.com/dekarrin/allstar/internal/ptrace"
	"github.com/dekarrin/allstar/internal/tokenstream"
	"github.com/dekarrin/allstar/internal/util"
)

type recordingEvents struct {
	ambiguities   int
	fullContexts  int
	ctxSensitives int
	lastExact     bool
}

func (r *recordingEvents) ReportAmbiguity(attemptID uuid.UUID, decision, startIndex, stopIndex int, exact bool, ambigAlts *util.BitSet, configs ptrace.ConfigSetStringer) {
	r.ambiguities++
	r.lastExact = exact
}

func (r *recordingEvents) ReportAttemptingFullContext(attemptID uuid.UUID, decision, startIndex, stopIndex int, conflictingAlts *util.BitSet, configs ptrace.ConfigSetStringer) {
	r.fullContexts++
}

func (r *recordingEvents) ReportContextSensitivity(attemptID uuid.UUID, decision, startIndex, stopIndex, prediction int, configs ptrace.ConfigSetStringer) {
	r.ctxSensitives++
}

type fakeEvaluator struct {
	preds map[[2]int]bool
}

func (f fakeEvaluator) EvalPredicate(ruleIndex, predIndex int) bool {
	return f.preds[[2]int{ruleIndex, predIndex}]
}

func (f fakeEvaluator) EvalPrecedence(level int) bool { return true }

// buildTwoAltGraph builds: decision -eps-> s1 -'a'(5)-> s3 -eps-> stop
//                           decision -eps-> s2 -'b'(6)-> s4 -eps-> stop
func buildTwoAltGraph() *atn.Graph {
	g := atn.NewGraph([]string{"S"}, 10)
	dec := g.AddState(atn.StateDecision, 0)
	s1 := g.AddState(atn.StatePlain, 0)
	s2 := g.AddState(atn.StatePlain, 0)
	s3 := g.AddState(atn.StatePlain, 0)
	s4 := g.AddState(atn.StatePlain, 0)
	stop := g.AddState(atn.StateRuleStop, 0)

	dec.AddTransition(atn.EpsilonTransition{To: s1.Number})
	dec.AddTransition(atn.EpsilonTransition{To: s2.Number})
	s1.AddTransition(atn.AtomTransition{To: s3.Number, Label: 5})
	s2.AddTransition(atn.AtomTransition{To: s4.Number, Label: 6})
	s3.AddTransition(atn.EpsilonTransition{To: stop.Number})
	s4.AddTransition(atn.EpsilonTransition{To: stop.Number})
	g.DefineDecision(dec)

	return g
}

// buildAmbiguousGraph builds two alternatives that both match token 5 and
// land on the same rule-stop state with the same (empty) context: an SLL
// conflict that fails over to full context, where it is still unresolvable
// and ends in an ambiguity report.
func buildAmbiguousGraph() *atn.Graph {
	g := atn.NewGraph([]string{"S"}, 10)
	dec := g.AddState(atn.StateDecision, 0)
	s1 := g.AddState(atn.StatePlain, 0)
	s2 := g.AddState(atn.StatePlain, 0)
	s3 := g.AddState(atn.StatePlain, 0)
	s4 := g.AddState(atn.StatePlain, 0)
	stop := g.AddState(atn.StateRuleStop, 0)

	dec.AddTransition(atn.EpsilonTransition{To: s1.Number})
	dec.AddTransition(atn.EpsilonTransition{To: s2.Number})
	s1.AddTransition(atn.AtomTransition{To: s3.Number, Label: 5})
	s2.AddTransition(atn.AtomTransition{To: s4.Number, Label: 5})
	s3.AddTransition(atn.EpsilonTransition{To: stop.Number})
	s4.AddTransition(atn.EpsilonTransition{To: stop.Number})
	g.DefineDecision(dec)

	return g
}

func newTestPredictor(g *atn.Graph) *Predictor {
	pr := New(g, dfacache.NewCache(g.MaxTokenType()), pcontext.NewCache(), nil)
	pr.SetPredictionMode(predictmode.LL)
	return pr
}

func tokensOf(types ...int) tokenstream.Stream {
	toks := make([]tokenstream.Token, len(types))
	for i, tt := range types {
		toks[i] = tokenstream.BasicToken{TokType: tt}
	}
	return tokenstream.NewSlice(toks)
}

func Test_Predict_picksMatchingAlt(t *testing.T) {
	// setup
	assert := assert.New(t)
	pr := newTestPredictor(buildTwoAltGraph())
	input := tokensOf(6)

	// execute
	alt, err := pr.Predict(input, 0, nil)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(2, alt)
}

func Test_Predict_restoresInputPositionOnExit(t *testing.T) {
	// setup
	assert := assert.New(t)
	pr := newTestPredictor(buildTwoAltGraph())
	input := tokensOf(5)

	// execute
	_, err := pr.Predict(input, 0, nil)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(0, input.Index())
}

func Test_Predict_deadEndReturnsNoViableAlternative(t *testing.T) {
	// setup
	assert := assert.New(t)
	pr := newTestPredictor(buildTwoAltGraph())
	input := tokensOf(99)

	// execute
	_, err := pr.Predict(input, 0, nil)

	// assert
	if !assert.Error(err) {
		return
	}
	assert.True(perrors.IsNoViableAlternative(err))
}

func Test_Predict_cachesDFAAcrossCalls(t *testing.T) {
	// setup: two predicts against the same decision must reuse the interned
	// DFA rather than building a fresh one every call.
	assert := assert.New(t)
	pr := newTestPredictor(buildTwoAltGraph())

	// execute
	_, err1 := pr.Predict(tokensOf(5), 0, nil)
	_, err2 := pr.Predict(tokensOf(6), 0, nil)

	// assert
	if !assert.NoError(err1) || !assert.NoError(err2) {
		return
	}
	stats := pr.DFAs.Stats(0)
	assert.Greater(stats.States, 0)
}

func Test_Predict_ambiguityResolvesToLowestAlt(t *testing.T) {
	// setup: both alts match token 5 and land on an identical (state,
	// context) pair, an unresolvable SLL conflict that fails over to full
	// context; in exact-ambiguity-detection mode that failover immediately
	// recognizes every subset conflicts and picks the lowest alt rather than
	// consuming input looking for a discriminating token that doesn't exist.
	assert := assert.New(t)
	pr := newTestPredictor(buildAmbiguousGraph())
	pr.SetPredictionMode(predictmode.LLExactAmbigDetection)
	input := tokensOf(5)

	// execute
	alt, err := pr.Predict(input, 0, nil)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(1, alt)
}

// buildContextSensitiveGraph builds a decision inside rule R whose first
// alternative ends the rule after one token while the second keeps consuming:
//
//	dec -eps-> a1 -'x'(5)-> r1 -eps-> Rstop
//	dec -eps-> a2 -'x'(5)-> s6 -'y'(6)-> r2 -eps-> Rstop
//
// plus a caller frame in rule S whose follow state f only accepts token 7.
// Seen without a caller (SLL), alt 1 might legally stop after 'x'; with the
// real caller, 'y' on the next token rules alt 1 out.
func buildContextSensitiveGraph() (g *atn.Graph, follow *atn.State) {
	g = atn.NewGraph([]string{"S", "R"}, 10)
	dec := g.AddState(atn.StateDecision, 1)
	a1 := g.AddState(atn.StatePlain, 1)
	a2 := g.AddState(atn.StatePlain, 1)
	r1 := g.AddState(atn.StatePlain, 1)
	s6 := g.AddState(atn.StatePlain, 1)
	r2 := g.AddState(atn.StatePlain, 1)
	rStop := g.AddState(atn.StateRuleStop, 1)
	follow = g.AddState(atn.StatePlain, 0)
	sEnd := g.AddState(atn.StatePlain, 0)

	dec.AddTransition(atn.EpsilonTransition{To: a1.Number})
	dec.AddTransition(atn.EpsilonTransition{To: a2.Number})
	a1.AddTransition(atn.AtomTransition{To: r1.Number, Label: 5})
	a2.AddTransition(atn.AtomTransition{To: s6.Number, Label: 5})
	r1.AddTransition(atn.EpsilonTransition{To: rStop.Number})
	s6.AddTransition(atn.AtomTransition{To: r2.Number, Label: 6})
	r2.AddTransition(atn.EpsilonTransition{To: rStop.Number})
	follow.AddTransition(atn.AtomTransition{To: sEnd.Number, Label: 7})
	g.DefineDecision(dec)

	return g, follow
}

func Test_Predict_llFailoverResolvesContextSensitivity(t *testing.T) {
	// setup: SLL lookahead conflicts after 'x' (alt 1 has reached the rule
	// stop while alt 2 is mid-rule); the real caller's follow set only
	// accepts token 7, so full context resolves to alt 2 on seeing 'y'.
	assert := assert.New(t)
	g, follow := buildContextSensitiveGraph()
	pr := newTestPredictor(g)
	rec := &recordingEvents{}
	tracer := ptrace.New()
	tracer.SetEvents(rec)
	pr.SetTrace(tracer)
	input := tokensOf(5, 6)
	outerCtx := &pcontext.RuleInvocation{InvokingState: follow.Number}

	// execute
	alt, err := pr.Predict(input, 0, outerCtx)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(2, alt)
	assert.Equal(1, rec.fullContexts)
	assert.Equal(1, rec.ctxSensitives)
	assert.Equal(0, rec.ambiguities)
	assert.Equal(0, input.Index())
}

// buildPredicateGraph guards both alternatives of a decision with a semantic
// predicate before they match the same token:
//
//	dec -eps-> p1 -pred(0,0)-> g1 -'a'(5)-> r1 -eps-> stop
//	dec -eps-> p2 -pred(0,1)-> g2 -'a'(5)-> r2 -eps-> stop
func buildPredicateGraph() *atn.Graph {
	g := atn.NewGraph([]string{"S"}, 10)
	dec := g.AddState(atn.StateDecision, 0)
	p1 := g.AddState(atn.StatePlain, 0)
	p2 := g.AddState(atn.StatePlain, 0)
	g1 := g.AddState(atn.StatePlain, 0)
	g2 := g.AddState(atn.StatePlain, 0)
	r1 := g.AddState(atn.StatePlain, 0)
	r2 := g.AddState(atn.StatePlain, 0)
	stop := g.AddState(atn.StateRuleStop, 0)

	dec.AddTransition(atn.EpsilonTransition{To: p1.Number})
	dec.AddTransition(atn.EpsilonTransition{To: p2.Number})
	p1.AddTransition(atn.PredicateTransition{To: g1.Number, RuleIndex: 0, PredIndex: 0})
	p2.AddTransition(atn.PredicateTransition{To: g2.Number, RuleIndex: 0, PredIndex: 1})
	g1.AddTransition(atn.AtomTransition{To: r1.Number, Label: 5})
	g2.AddTransition(atn.AtomTransition{To: r2.Number, Label: 5})
	r1.AddTransition(atn.EpsilonTransition{To: stop.Number})
	r2.AddTransition(atn.EpsilonTransition{To: stop.Number})
	g.DefineDecision(dec)

	return g
}

func Test_Predict_hoistedPredicateSelectsAlt(t *testing.T) {
	// setup: both alts match 'a' but only the second alt's predicate holds,
	// so the hoisted (pred, alt) pairs must resolve to alt 2 at accept time
	// with no ambiguity report.
	assert := assert.New(t)
	g := buildPredicateGraph()
	eval := fakeEvaluator{preds: map[[2]int]bool{{0, 1}: true}}
	pr := New(g, dfacache.NewCache(g.MaxTokenType()), pcontext.NewCache(), eval)
	rec := &recordingEvents{}
	tracer := ptrace.New()
	tracer.SetEvents(rec)
	pr.SetTrace(tracer)
	input := tokensOf(5)

	// execute
	alt, err := pr.Predict(input, 0, nil)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(2, alt)
	assert.Equal(0, rec.ambiguities)
}

func Test_Predict_bothPredicatesTrueTakesMinimumAndReportsAmbiguity(t *testing.T) {
	// setup: with both predicates true neither alt can be ruled out; the
	// full-context pass confirms the tie and resolves to the lowest alt.
	assert := assert.New(t)
	g := buildPredicateGraph()
	eval := fakeEvaluator{preds: map[[2]int]bool{{0, 0}: true, {0, 1}: true}}
	pr := New(g, dfacache.NewCache(g.MaxTokenType()), pcontext.NewCache(), eval)
	rec := &recordingEvents{}
	tracer := ptrace.New()
	tracer.SetEvents(rec)
	pr.SetTrace(tracer)
	input := tokensOf(5)

	// execute
	alt, err := pr.Predict(input, 0, nil)

	// assert
	if !assert.NoError(err) {
		return
	}
	assert.Equal(1, alt)
	assert.Equal(1, rec.ambiguities)
}

func Test_Predict_noPredicateHoldsIsNoViableAlternative(t *testing.T) {
	// setup
	assert := assert.New(t)
	g := buildPredicateGraph()
	eval := fakeEvaluator{preds: map[[2]int]bool{}}
	pr := New(g, dfacache.NewCache(g.MaxTokenType()), pcontext.NewCache(), eval)
	pr.SetPredictionMode(predictmode.SLL)
	input := tokensOf(5)

	// execute
	_, err := pr.Predict(input, 0, nil)

	// assert
	if !assert.Error(err) {
		return
	}
	assert.True(perrors.IsNoViableAlternative(err))
	assert.Equal(0, input.Index())
}

func Test_ClearDFA_forcesRebuild(t *testing.T) {
	// setup
	assert := assert.New(t)
	pr := newTestPredictor(buildTwoAltGraph())
	_, err := pr.Predict(tokensOf(5), 0, nil)
	assert.NoError(err)

	// execute
	pr.ClearDFA(0)

	// assert
	stats := pr.DFAs.Stats(0)
	assert.Equal(0, stats.States)
}
