// Package semantic implements ATN semantic contexts: the predicate trees
// attached to ATN configurations and evaluated against parser state when a
// DFA accept state carries more than one viable alternative.
package semantic

import (
	"fmt"
	"sort"
	"strings"
)

// Evaluator is whatever the parser exposes to evaluate a single predicate or
// precedence predicate. It is supplied by the caller (the generated
// recognizer, in a real parser); this package never constructs one.
type Evaluator interface {
	// EvalPredicate evaluates the ruleIndex/predIndex predicate identified
	// by a Predicate semantic context. The parser is responsible for
	// running it at the input position the caller has already seeked to.
	EvalPredicate(ruleIndex, predIndex int) bool

	// EvalPrecedence evaluates whether the current precedence level permits
	// level.
	EvalPrecedence(level int) bool
}

// Context is a semantic context: a boolean expression over predicates that
// is evaluated lazily, only when a decision cannot be resolved without it.
// NONE (the zero value returned by None()) is always true and is the
// context every config starts with.
type Context interface {
	// Eval evaluates the context against ev.
	Eval(ev Evaluator) bool

	// IsNone reports whether this is the always-true NONE context.
	IsNone() bool

	// key is a comparable projection used for structural equality and AND/OR
	// self-simplification (dedup).
	key() string
}

type none struct{}

func (none) Eval(ev Evaluator) bool { return true }
func (none) IsNone() bool { return true }
func (none) key() string { return "NONE" }

// None returns the always-true semantic context.
func None() Context { return none{} }

// Predicate is a single rule-level semantic predicate, e.g. `{i < 3}?` in
// grammar source. CtxDependent marks predicates whose value can depend on
// which call context invoked the rule; closure skips those in SLL mode,
// where the real call context is unknown, and evaluates them only under
// full context.
type Predicate struct {
	RuleIndex    int
	PredIndex    int
	CtxDependent bool
}

func (p Predicate) Eval(ev Evaluator) bool { return ev.EvalPredicate(p.RuleIndex, p.PredIndex) }
func (p Predicate) IsNone() bool { return false }
func (p Predicate) key() string { return fmt.Sprintf("p(%d,%d)", p.RuleIndex, p.PredIndex) }

// PrecedencePredicate guards an alternative on the current precedence
// level, used to implement left-recursive expression rules.
type PrecedencePredicate struct {
	Level int
}

func (p PrecedencePredicate) Eval(ev Evaluator) bool { return ev.EvalPrecedence(p.Level) }
func (p PrecedencePredicate) IsNone() bool { return false }
func (p PrecedencePredicate) key() string { return fmt.Sprintf("prec(%d)", p.Level) }

// and is the conjunction of two or more non-NONE contexts, kept flattened
// and deduplicated by And().
type and struct {
	operands []Context
	k        string
}

func (a *and) Eval(ev Evaluator) bool {
	for _, op := range a.operands {
		if !op.Eval(ev) {
			return false
		}
	}
	return true
}
func (a *and) IsNone() bool { return false }
func (a *and) key() string { return a.k }

// or is the disjunction of two or more non-NONE contexts, kept flattened
// and deduplicated by Or().
type or struct {
	operands []Context
	k        string
}

func (o *or) Eval(ev Evaluator) bool {
	for _, op := range o.operands {
		if op.Eval(ev) {
			return true
		}
	}
	return false
}
func (o *or) IsNone() bool { return false }
func (o *or) key() string { return o.k }

// And returns the conjunction of the given contexts, flattening nested AND
// trees, dropping NONE operands (they contribute nothing to a conjunction),
// deduplicating structurally-equal operands, and collapsing to NONE/a
// single operand when that's all that's left.
func And(contexts ...Context) Context {
	flat := flatten(contexts, func(c Context) ([]Context, bool) {
		a, ok := c.(*and)
		if !ok {
			return nil, false
		}
		return a.operands, true
	})

	kept := dedupDropping(flat, func(c Context) bool { return c.IsNone() })
	if len(kept) == 0 {
		return None()
	}
	if len(kept) == 1 {
		return kept[0]
	}

	return &and{operands: kept, k: joinKey("AND", kept)}
}

// Or returns the disjunction of the given contexts. If any operand is NONE,
// the whole OR is always true and collapses to NONE, since one alternative
// with no guard makes the other guards irrelevant for feasibility.
func Or(contexts ...Context) Context {
	flat := flatten(contexts, func(c Context) ([]Context, bool) {
		o, ok := c.(*or)
		if !ok {
			return nil, false
		}
		return o.operands, true
	})

	for _, c := range flat {
		if c.IsNone() {
			return None()
		}
	}

	kept := dedupDropping(flat, func(c Context) bool { return false })
	if len(kept) == 0 {
		return None()
	}
	if len(kept) == 1 {
		return kept[0]
	}

	return &or{operands: kept, k: joinKey("OR", kept)}
}

func flatten(contexts []Context, unwrap func(Context) ([]Context, bool)) []Context {
	var out []Context
	for _, c := range contexts {
		if inner, ok := unwrap(c); ok {
			out = append(out, flatten(inner, unwrap)...)
		} else {
			out = append(out, c)
		}
	}
	return out
}

func dedupDropping(contexts []Context, drop func(Context) bool) []Context {
	seen := make(map[string]bool)
	var out []Context
	for _, c := range contexts {
		if drop(c) {
			continue
		}
		k := c.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

func joinKey(op string, contexts []Context) string {
	keys := make([]string, len(contexts))
	for i, c := range contexts {
		keys[i] = c.key()
	}
	sort.Strings(keys)
	return op + "(" + strings.Join(keys, ",") + ")"
}

// Equal reports whether a and b are structurally the same semantic context.
func Equal(a, b Context) bool {
	return a.key() == b.key()
}

// String renders a context for trace/debug output.
func String(c Context) string {
	return c.key()
}
