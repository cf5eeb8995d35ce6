package util

import (
	"fmt"
	"strings"
)

// BitSet is a set of small non-negative integers, used to hold the
// alternative-index subsets produced when partitioning a config set by
// (state, context). It is considerably cheaper to copy, union, and compare
// than a map[int]bool once alt counts are in the dozens, which is the common
// case for decision states.
type BitSet struct {
	words []uint64
}

const bitsPerWord = 64

// NewBitSet returns an empty BitSet.
func NewBitSet() *BitSet {
	return &BitSet{}
}

// BitSetOf returns a new BitSet containing exactly the given values.
func BitSetOf(vals ...int) *BitSet {
	bs := NewBitSet()
	for _, v := range vals {
		bs.Add(v)
	}
	return bs
}

func (bs *BitSet) grow(word int) {
	for len(bs.words) <= word {
		bs.words = append(bs.words, 0)
	}
}

// Add puts v in the set. v must be non-negative.
func (bs *BitSet) Add(v int) {
	word, bit := v/bitsPerWord, uint(v%bitsPerWord)
	bs.grow(word)
	bs.words[word] |= 1 << bit
}

// Has returns whether v is in the set.
func (bs *BitSet) Has(v int) bool {
	word, bit := v/bitsPerWord, uint(v%bitsPerWord)
	if word >= len(bs.words) {
		return false
	}
	return bs.words[word]&(1<<bit) != 0
}

// Len returns the number of members in the set.
func (bs *BitSet) Len() int {
	count := 0
	for _, w := range bs.words {
		for w != 0 {
			w &= w - 1
			count++
		}
	}
	return count
}

// Empty returns whether the set has no members.
func (bs *BitSet) Empty() bool {
	return bs.Len() == 0
}

// Minimum returns the smallest member of the set and true, or (0, false) if
// the set is empty.
func (bs *BitSet) Minimum() (int, bool) {
	for word, w := range bs.words {
		if w == 0 {
			continue
		}
		for bit := 0; bit < bitsPerWord; bit++ {
			if w&(1<<uint(bit)) != 0 {
				return word*bitsPerWord + bit, true
			}
		}
	}
	return 0, false
}

// Elements returns the members of the set in ascending order.
func (bs *BitSet) Elements() []int {
	elems := make([]int, 0, bs.Len())
	for word, w := range bs.words {
		for bit := 0; bit < bitsPerWord; bit++ {
			if w&(1<<uint(bit)) != 0 {
				elems = append(elems, word*bitsPerWord+bit)
			}
		}
	}
	return elems
}

// Or returns the union of bs and o as a new BitSet.
func (bs *BitSet) Or(o *BitSet) *BitSet {
	n := len(bs.words)
	if len(o.words) > n {
		n = len(o.words)
	}
	result := &BitSet{words: make([]uint64, n)}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(bs.words) {
			a = bs.words[i]
		}
		if i < len(o.words) {
			b = o.words[i]
		}
		result.words[i] = a | b
	}
	return result
}

// And returns the intersection of bs and o as a new BitSet.
func (bs *BitSet) And(o *BitSet) *BitSet {
	n := len(bs.words)
	if len(o.words) < n {
		n = len(o.words)
	}
	result := &BitSet{words: make([]uint64, n)}
	for i := 0; i < n; i++ {
		result.words[i] = bs.words[i] & o.words[i]
	}
	return result
}

// Equal returns whether bs and o have exactly the same members.
func (bs *BitSet) Equal(o *BitSet) bool {
	n := len(bs.words)
	if len(o.words) > n {
		n = len(o.words)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(bs.words) {
			a = bs.words[i]
		}
		if i < len(o.words) {
			b = o.words[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

// Copy returns an independent copy of bs.
func (bs *BitSet) Copy() *BitSet {
	cp := &BitSet{words: make([]uint64, len(bs.words))}
	copy(cp.words, bs.words)
	return cp
}

// String renders the set as "{1, 2, 3}", in ascending order.
func (bs *BitSet) String() string {
	elems := bs.Elements()
	strs := make([]string, len(elems))
	for i, e := range elems {
		strs[i] = fmt.Sprintf("%d", e)
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
