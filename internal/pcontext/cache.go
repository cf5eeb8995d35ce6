package pcontext

import "sync"

// Cache interns Contexts so that structurally equal graphs share storage;
// merge results are memoized separately, per call, by MergeCache. It is
// shared process-wide (or at least across
// every parser instance that shares an ATN); all access is serialized by a
// single coarse mutex, which is sufficient since every operation it guards
// is a cheap map lookup or insert.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Context
}

// NewCache returns an empty, ready-to-use Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Context)}
}

// Intern returns the canonical shared instance structurally equal to ctx,
// registering ctx itself as that instance if this is the first time its
// shape has been seen. Empty is always its own canonical instance and is
// never stored in the table.
func (c *Cache) Intern(ctx Context) Context {
	if ctx == Empty {
		return Empty
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := ctx.equalKey()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = ctx
	return ctx
}

// Len reports how many distinct non-Empty contexts are currently interned.
// Exposed for cache-size introspection.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MergeCache memoizes merge(a, b) results for the lifetime of a single
// prediction call. It must not outlive its decision; callers ensure that by
// simply discarding the MergeCache and allocating a fresh one for the next
// call; nothing here is shared across decisions.
type MergeCache struct {
	entries map[mergeKey]Context
}

type mergeKey struct {
	a, b           string
	rootIsWildcard bool
}

// NewMergeCache returns an empty per-call merge cache.
func NewMergeCache() *MergeCache {
	return &MergeCache{entries: make(map[mergeKey]Context)}
}

func (m *MergeCache) get(a, b Context, rootIsWildcard bool) (Context, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.entries[mergeKey{a.equalKey(), b.equalKey(), rootIsWildcard}]
	return v, ok
}

func (m *MergeCache) put(a, b Context, rootIsWildcard bool, result Context) {
	if m == nil {
		return
	}
	m.entries[mergeKey{a.equalKey(), b.equalKey(), rootIsWildcard}] = result
	m.entries[mergeKey{b.equalKey(), a.equalKey(), rootIsWildcard}] = result
}
