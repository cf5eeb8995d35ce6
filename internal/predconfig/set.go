package predconfig

import (
	"fmt"
	"strings"

	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/util"
)

// Set is an ordered-insertion, merging set of Configs. Adding a config that
// matches an existing one on (state, alt, semCtx) merges their contexts
// instead of keeping both; this is what lets the reach/closure computation
// stay polynomial instead of tracking one config per distinct call stack.
type Set struct {
	order []Config
	index map[string]int // mergeKey -> position in order

	readonly bool

	FullCtx              bool
	HasSemanticContext   bool
	DipsIntoOuterContext bool

	uniqueAlt       int
	uniqueAltValid  bool
	conflictSubsets []*util.BitSet
	conflictsValid  bool
}

// NewSet returns an empty config set. fullCtx records whether this set is
// being built under full-context (LL) prediction, which affects how Add
// merges and how reach treats rule-stop configs.
func NewSet(fullCtx bool) *Set {
	return &Set{
		index:   make(map[string]int),
		FullCtx: fullCtx,
	}
}

// Len returns the number of distinct configs in the set.
func (s *Set) Len() int { return len(s.order) }

// Empty reports whether the set has no configs.
func (s *Set) Empty() bool { return len(s.order) == 0 }

// Elements returns the configs in insertion order. The returned slice must
// not be mutated; it aliases the set's own storage.
func (s *Set) Elements() []Config { return s.order }

// Add inserts c, merging it with any existing config matching on
// (state, alt, semCtx) by replacing that config's context with
// merge(existing.context, c.context). It panics if the set has been frozen
// by SetReadonly.
func (s *Set) Add(c Config, cache *pcontext.Cache, mc *pcontext.MergeCache) {
	if s.readonly {
		panic("Add called on a readonly config set")
	}
	s.invalidateCaches()

	if !c.SemCtx.IsNone() {
		s.HasSemanticContext = true
	}

	key := c.mergeKey()
	if pos, ok := s.index[key]; ok {
		existing := s.order[pos]
		merged := pcontext.Merge(existing.Context, c.Context, !s.FullCtx, cache, mc)
		existing.Context = merged
		s.order[pos] = existing
		return
	}

	s.index[key] = len(s.order)
	s.order = append(s.order, c)
}

// AddAll adds every config of other to s.
func (s *Set) AddAll(other *Set, cache *pcontext.Cache, mc *pcontext.MergeCache) {
	for _, c := range other.order {
		s.Add(c, cache, mc)
	}
}

func (s *Set) invalidateCaches() {
	s.uniqueAltValid = false
	s.conflictsValid = false
}

// SetReadonly freezes the set: once called, Add panics. DFA states call
// this on the config set they intern; an interned state's configs are
// read-only for good.
func (s *Set) SetReadonly() { s.readonly = true }

// IsReadonly reports whether SetReadonly has been called.
func (s *Set) IsReadonly() bool { return s.readonly }

// InvalidAlt marks "no unique/conflicting alt could be determined."
const InvalidAlt = 0

// UniqueAlt returns the single alt shared by every config in the set, or
// InvalidAlt if the set is empty or its configs disagree.
func (s *Set) UniqueAlt() int {
	if s.uniqueAltValid {
		return s.uniqueAlt
	}

	alt := InvalidAlt
	for i, c := range s.order {
		if i == 0 {
			alt = c.Alt
			continue
		}
		if c.Alt != alt {
			alt = InvalidAlt
			break
		}
	}

	s.uniqueAlt = alt
	s.uniqueAltValid = true
	return alt
}

// ConflictingAltSubsets partitions the set's configs by (state, context)
// (semantic context ignored) and returns, for each
// partition, the bitset of alts its members carry. Two configs landing in
// the same (state, context) partition but voting for different alts is
// exactly what "conflicting" means: the ATN can't tell those alternatives
// apart without more lookahead.
func (s *Set) ConflictingAltSubsets() []*util.BitSet {
	if s.conflictsValid {
		return s.conflictSubsets
	}

	partitions := make(map[string]*util.BitSet)
	var order []string
	for _, c := range s.order {
		key := partitionKey(c)
		bs, ok := partitions[key]
		if !ok {
			bs = util.NewBitSet()
			partitions[key] = bs
			order = append(order, key)
		}
		bs.Add(c.Alt)
	}

	subsets := make([]*util.BitSet, len(order))
	for i, key := range order {
		subsets[i] = partitions[key]
	}

	s.conflictSubsets = subsets
	s.conflictsValid = true
	return subsets
}

func partitionKey(c Config) string {
	return fmt.Sprintf("%s@%d", pcontext.Key(c.Context), c.State)
}

// Alts returns the union of every alt appearing in subsets.
func Alts(subsets []*util.BitSet) *util.BitSet {
	all := util.NewBitSet()
	for _, bs := range subsets {
		for _, alt := range bs.Elements() {
			all.Add(alt)
		}
	}
	return all
}

// String renders the set's configs in insertion order, e.g.
// "{(4,1,[7]), (9,2,[])}", for trace output and test failure messages.
func (s *Set) String() string {
	var sb strings.Builder
	sb.WriteRune('{')
	for i, c := range s.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
	}
	sb.WriteRune('}')
	return sb.String()
}

// Copy returns a shallow, independent, writable copy of s (its Config
// slice is copied; the Configs and Contexts themselves, being value-like
// and immutable respectively, are shared).
func (s *Set) Copy() *Set {
	cp := NewSet(s.FullCtx)
	cp.order = append([]Config(nil), s.order...)
	cp.index = make(map[string]int, len(s.index))
	for k, v := range s.index {
		cp.index[k] = v
	}
	cp.HasSemanticContext = s.HasSemanticContext
	cp.DipsIntoOuterContext = s.DipsIntoOuterContext
	return cp
}
