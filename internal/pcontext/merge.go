package pcontext

// Merge returns the canonical context representing stacks(a) ∪ stacks(b),
// interned through cache and memoized in mc for the remainder of the
// current adaptivePredict call. rootIsWildcard selects the SLL convention
// that a bare Empty context matches any possible caller, versus the LL
// convention that Empty plus a real context means "both directly at rule
// entry and called from somewhere," which must be preserved.
//
// Identity (a == b, meaning equal by structural key, since both operands
// have already been through Cache.Intern) short-circuits to a, which is
// both the idempotency guarantee and the
// mechanism that breaks self-referential cycles: once two operands key out
// as the same node, recursion stops instead of walking into a DAG that
// happens to reference itself through a shared descendant.
func Merge(a, b Context, rootIsWildcard bool, cache *Cache, mc *MergeCache) Context {
	if a.equalKey() == b.equalKey() {
		return a
	}

	if cached, ok := mc.get(a, b, rootIsWildcard); ok {
		return cached
	}

	var result Context
	if a == Empty || b == Empty {
		result = mergeRoot(a, b, rootIsWildcard)
	} else {
		result = mergeNonEmpty(a, b, rootIsWildcard, cache, mc)
	}

	result = cache.Intern(result)
	mc.put(a, b, rootIsWildcard, result)
	return result
}

// mergeRoot handles the case where at least one operand is Empty.
func mergeRoot(a, b Context, rootIsWildcard bool) Context {
	if rootIsWildcard {
		return Empty
	}
	if a == Empty && b == Empty {
		return Empty
	}

	other := a
	if a == Empty {
		other = b
	}
	return addBottomOfStackEntry(other)
}

// addBottomOfStackEntry returns an array context with ctx's own entries plus
// one more representing "prediction also started directly here" (parent
// Empty, return state EmptyReturnState).
func addBottomOfStackEntry(ctx Context) Context {
	entries := toEntries(ctx)
	entries = append(entries, arrayEntry{parent: Empty, returnState: EmptyReturnState})
	return MakeArray(entries)
}

func toEntries(ctx Context) []arrayEntry {
	n := ctx.Size()
	out := make([]arrayEntry, n)
	for i := 0; i < n; i++ {
		out[i] = arrayEntry{parent: ctx.ParentAt(i), returnState: ctx.ReturnStateAt(i)}
	}
	return out
}

// mergeNonEmpty handles two operands that are each a Singleton or an Array,
// by an ordered parallel walk: entries with equal return states merge their
// parents; entries with distinct return states are interleaved in order.
func mergeNonEmpty(a, b Context, rootIsWildcard bool, cache *Cache, mc *MergeCache) Context {
	ea := toEntries(a)
	eb := toEntries(b)

	var merged []arrayEntry
	i, j := 0, 0
	for i < len(ea) && j < len(eb) {
		switch {
		case ea[i].returnState == eb[j].returnState:
			parent := Merge(ea[i].parent, eb[j].parent, rootIsWildcard, cache, mc)
			merged = append(merged, arrayEntry{parent: parent, returnState: ea[i].returnState})
			i++
			j++
		case returnStateLess(ea[i].returnState, eb[j].returnState):
			merged = append(merged, ea[i])
			i++
		default:
			merged = append(merged, eb[j])
			j++
		}
	}
	merged = append(merged, ea[i:]...)
	merged = append(merged, eb[j:]...)

	return MakeArray(merged)
}
