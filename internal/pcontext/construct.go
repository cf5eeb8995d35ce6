package pcontext

import (
	"fmt"
	"sort"
)

// NewSingleton returns a context popping to returnState and then continuing
// with parent. It is not interned; call Cache.Intern on the result (or build
// contexts exclusively through a Cache, as fromRuleContext does) to get
// sharing guarantees.
func NewSingleton(parent Context, returnState int) Context {
	if parent == nil {
		panic("nil parent passed to NewSingleton; use Empty")
	}
	return &singleton{
		parent:      parent,
		returnState: returnState,
		key:         fmt.Sprintf("s(%s,%d)", parent.equalKey(), returnState),
	}
}

// NewArray returns a context with the given parallel parent/returnState
// pairs, which must already be sorted ascending by returnState with
// EmptyReturnState (if present) sorted last, and must contain no duplicate
// return states. Use MakeArray to build one from unsorted input instead of
// calling this directly.
func NewArray(parents []Context, returnStates []int) Context {
	if len(parents) != len(returnStates) {
		panic("parents and returnStates must be parallel arrays of equal length")
	}
	if len(parents) < 2 {
		panic("array context requires at least two entries; use Empty or NewSingleton")
	}

	keyParts := make([]string, len(parents))
	for i := range parents {
		keyParts[i] = fmt.Sprintf("%s:%d", parents[i].equalKey(), returnStates[i])
	}

	key := "a("
	for i, p := range keyParts {
		if i > 0 {
			key += ","
		}
		key += p
	}
	key += ")"

	return &array{
		parents:      append([]Context(nil), parents...),
		returnStates: append([]int(nil), returnStates...),
		key:          key,
	}
}

// arrayEntry pairs a parent with a return state for sorting during
// MakeArray.
type arrayEntry struct {
	parent      Context
	returnState int
}

// MakeArray builds a canonical array context (or a singleton/Empty if the
// input collapses to fewer than two distinct return states) from unsorted
// (parent, returnState) pairs. Duplicate return states are not expected here
// (merge is responsible for resolving those before calling MakeArray) and
// will panic.
func MakeArray(entries []arrayEntry) Context {
	if len(entries) == 0 {
		return Empty
	}
	if len(entries) == 1 {
		return NewSingleton(entries[0].parent, entries[0].returnState)
	}

	sorted := append([]arrayEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return returnStateLess(sorted[i].returnState, sorted[j].returnState)
	})

	parents := make([]Context, len(sorted))
	returnStates := make([]int, len(sorted))
	for i, e := range sorted {
		if i > 0 && returnStates[i-1] == e.returnState {
			panic("duplicate return state in MakeArray input; caller must merge first")
		}
		parents[i] = e.parent
		returnStates[i] = e.returnState
	}

	return NewArray(parents, returnStates)
}

// returnStateLess orders return states ascending, with EmptyReturnState
// sorted last regardless of its numeric value.
func returnStateLess(a, b int) bool {
	if a == EmptyReturnState {
		return false
	}
	if b == EmptyReturnState {
		return true
	}
	return a < b
}

// RuleInvocation is the minimal view of the parser's real call stack that
// FromRuleContext needs: the state the caller will resume at, and the next
// frame out (nil at the outermost frame).
type RuleInvocation struct {
	InvokingState int
	Parent        *RuleInvocation
}

// FromRuleContext lifts the parser's real call stack into a GSS chain
// rooted at Empty, interning every frame through cache. This is the LL-mode
// counterpart to using Empty directly for SLL: it is called exactly once,
// at the start of execATNWithFullContext, to seed a full prediction
// context from outerCtx.
func FromRuleContext(cache *Cache, ctx *RuleInvocation) Context {
	if ctx == nil {
		return Empty
	}

	parent := FromRuleContext(cache, ctx.Parent)
	return cache.Intern(NewSingleton(parent, ctx.InvokingState))
}
