// Package atn holds the Augmented Transition Network: the read-only,
// process-lifetime graph of states and transitions that a grammar compiles
// down to. It is the static input the prediction core walks; nothing in this
// package ever mutates a Graph once Validate has been called on it.
package atn

import "fmt"

// StateKind distinguishes the handful of ATN state roles that the prediction
// core treats specially. Plain states carry no special meaning beyond their
// rule index and transitions.
type StateKind int

const (
	// StatePlain is an ordinary state with no special role.
	StatePlain StateKind = iota

	// StateDecision is a branch point: a state with two or more outgoing
	// transitions representing distinct alternatives of a rule.
	StateDecision

	// StateRuleStart marks the entry point of a rule.
	StateRuleStart

	// StateRuleStop marks the end of a rule.
	StateRuleStop
)

// InvalidStateNumber marks a state reference that has not been resolved.
const InvalidStateNumber = -1

// State is one node of the ATN. A rule's body is a small subgraph of States
// linked by Transitions; RuleStart and RuleStop delimit it.
type State struct {
	Number      int
	Kind        StateKind
	RuleIndex   int
	Transitions []Transition

	// Decision is the 0-based decision index assigned to this state if Kind
	// is StateDecision, or -1 otherwise. The predictor uses it to look up
	// the state's DFA.
	Decision int
}

// AddTransition appends tr to the state's ordered transition list. Order
// matters: it determines 1-based alternative numbering at decision states
// and the probe order used by closure.
func (s *State) AddTransition(tr Transition) {
	s.Transitions = append(s.Transitions, tr)
}

// Graph is an immutable ATN: a set of States (indexed by state number) plus
// bookkeeping to find the entry point for a given decision and the stop
// state for a given rule. Graphs are built once (by a grammar compiler or a
// deserializer, both external to this package) and then shared read-only
// across every parser instance and goroutine that uses them.
type Graph struct {
	states          []*State
	decisionToState []*State
	ruleToStop      []*State
	ruleNames       []string
	maxTokenType    int
}

// NewGraph returns an empty Graph for a grammar with the given rule names
// (index-addressed by rule index) and maximum token type value (used to size
// DFA edge tables downstream).
func NewGraph(ruleNames []string, maxTokenType int) *Graph {
	return &Graph{
		ruleNames:    append([]string(nil), ruleNames...),
		maxTokenType: maxTokenType,
	}
}

// AddState appends a new state to the graph and returns it. The returned
// State's Number is its index; callers fill in Kind, RuleIndex, and
// Transitions before the graph is handed to Validate.
func (g *Graph) AddState(kind StateKind, ruleIndex int) *State {
	s := &State{
		Number:    len(g.states),
		Kind:      kind,
		RuleIndex: ruleIndex,
		Decision:  -1,
	}
	g.states = append(g.states, s)

	if kind == StateRuleStop {
		for len(g.ruleToStop) <= ruleIndex {
			g.ruleToStop = append(g.ruleToStop, nil)
		}
		g.ruleToStop[ruleIndex] = s
	}

	return s
}

// DefineDecision assigns the next decision index to s and records it so
// DecisionState can find it later. s.Kind must be StateDecision.
func (g *Graph) DefineDecision(s *State) int {
	if s.Kind != StateDecision {
		panic(fmt.Sprintf("DefineDecision called on non-decision state %d", s.Number))
	}
	s.Decision = len(g.decisionToState)
	g.decisionToState = append(g.decisionToState, s)
	return s.Decision
}

// State returns the state with the given number. It panics if n is out of
// range; an out-of-bounds lookup here is a programmer error, not a
// recoverable condition.
func (g *Graph) State(n int) *State {
	if n < 0 || n >= len(g.states) {
		panic(fmt.Sprintf("no such ATN state: %d", n))
	}
	return g.states[n]
}

// NumStates returns the number of states in the graph.
func (g *Graph) NumStates() int {
	return len(g.states)
}

// DecisionState returns the decision state for the given decision index. It
// panics if decision is out of range.
func (g *Graph) DecisionState(decision int) *State {
	if decision < 0 || decision >= len(g.decisionToState) {
		panic(fmt.Sprintf("no such decision: %d", decision))
	}
	return g.decisionToState[decision]
}

// NumDecisions returns the number of decision points registered in the
// graph.
func (g *Graph) NumDecisions() int {
	return len(g.decisionToState)
}

// RuleStopState returns the stop state of the given rule, or nil if the rule
// has not been given one yet.
func (g *Graph) RuleStopState(ruleIndex int) *State {
	if ruleIndex < 0 || ruleIndex >= len(g.ruleToStop) {
		return nil
	}
	return g.ruleToStop[ruleIndex]
}

// RuleName returns the human name of the given rule index, or a placeholder
// if out of range.
func (g *Graph) RuleName(ruleIndex int) string {
	if ruleIndex < 0 || ruleIndex >= len(g.ruleNames) {
		return fmt.Sprintf("<rule %d>", ruleIndex)
	}
	return g.ruleNames[ruleIndex]
}

// MaxTokenType returns the largest token type value any transition in the
// graph may match. DFA edge tables are sized to MaxTokenType()+2, leaving
// slot 0 for EOF (-1 shifted by one).
func (g *Graph) MaxTokenType() int {
	return g.maxTokenType
}

// Validate checks the graph's structural invariants: every transition must
// target a state that exists, every rule-stop state must actually be marked
// StateRuleStop, and every decision state must have at least two
// alternatives. It returns an error rather than panicking because, unlike a
// state lookup by number, a malformed graph is something a caller
// (typically a deserializer) can legitimately hit and must report.
func (g *Graph) Validate() error {
	errs := ""

	for _, s := range g.states {
		for _, tr := range s.Transitions {
			target := tr.Target()
			if target < 0 || target >= len(g.states) {
				errs += fmt.Sprintf("\nstate %d has transition to non-existent state %d", s.Number, target)
			}
		}

		if s.Kind == StateDecision && len(s.Transitions) < 2 {
			errs += fmt.Sprintf("\ndecision state %d has fewer than two alternatives", s.Number)
		}
	}

	for ruleIdx, stop := range g.ruleToStop {
		if stop != nil && stop.Kind != StateRuleStop {
			errs += fmt.Sprintf("\nrule %d's recorded stop state %d is not a RuleStopState", ruleIdx, stop.Number)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(errs[1:])
	}
	return nil
}
