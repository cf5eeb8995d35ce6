// Package dfacache implements the per-decision DFA cache: one lazily-built
// DFA per decision, its states interned by config-set signature, its edges
// sparse and keyed by token type. The DFA grows across concurrent
// prediction calls, so every mutation is serialized under one mutex.
package dfacache

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/allstar/internal/predconfig"
	"github.com/dekarrin/allstar/internal/semantic"
)

// PredicateEntry pairs a hoisted predicate with the alternative it guards.
type PredicateEntry struct {
	Pred semantic.Context
	Alt  int
}

// State is one node of a decision's DFA. Configs is frozen (readonly) the
// moment the state is interned; everything else may only be written while
// holding the owning Cache's mutex.
type State struct {
	Number  int
	Configs *predconfig.Set

	IsAcceptState       bool
	Prediction          int // alt index, or InvalidPrediction
	RequiresFullContext bool
	Predicates          []PredicateEntry

	edges []*State // index 0 is EOF (token type -1), index i+1 is token type i
}

// InvalidPrediction marks a DFAState that cannot predict without further
// runtime predicate evaluation (Predicates is non-empty) or that simply
// hasn't been classified yet.
const InvalidPrediction = 0

// Edge returns the state reached on tokenType, or nil if no edge has been
// computed yet.
func (s *State) Edge(tokenType int) *State {
	idx := tokenType + 1
	if idx < 0 || idx >= len(s.edges) {
		return nil
	}
	return s.edges[idx]
}

func (s *State) setEdge(tokenType int, to *State, maxTokenType int) {
	idx := tokenType + 1
	if idx < 0 {
		panic(fmt.Sprintf("token type %d out of range for DFA edge table", tokenType))
	}
	for len(s.edges) <= idx {
		s.edges = append(s.edges, nil)
	}
	if idx >= maxTokenType+2 {
		panic(fmt.Sprintf("token type %d exceeds ATN's max token type %d", tokenType, maxTokenType))
	}
	s.edges[idx] = to
}

// String renders the state's configs and prediction for trace/debug
// output.
func (s *State) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("s%d: {", s.Number))
	for i, c := range s.Configs.Elements() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
	}
	sb.WriteString("}")
	if s.IsAcceptState {
		sb.WriteString(fmt.Sprintf(" =>%d", s.Prediction))
	}
	return sb.String()
}

// Error is the sentinel DFAState shared by every DFA in every Cache,
// representing "reach was empty here." It is never interned, never has
// configs, and its Number is always -1.
var Error = &State{Number: -1}

// DFA holds one decision's lazily-built states.
type DFA struct {
	Start      *State // nil until the first predict() call computes s0
	states     map[string]*State
	order      int
}

func newDFA() *DFA {
	return &DFA{states: make(map[string]*State)}
}

// Cache owns one DFA per decision index plus the mutex serializing all
// mutation across every parser instance sharing it. Reads
// of an already-published State's fields may happen without the lock (its
// Configs are frozen and its edges only ever go from nil to a concrete
// State, never back); only interning a new state or writing a new edge
// needs Lock.
type Cache struct {
	mu           sync.Mutex
	dfas         map[int]*DFA
	maxTokenType int
}

// NewCache returns an empty cache sized for an ATN whose largest token type
// is maxTokenType.
func NewCache(maxTokenType int) *Cache {
	return &Cache{dfas: make(map[int]*DFA), maxTokenType: maxTokenType}
}

// DFAFor returns the DFA for decision, creating an empty one on first use.
func (c *Cache) DFAFor(decision int) *DFA {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.dfas[decision]
	if !ok {
		d = newDFA()
		c.dfas[decision] = d
	}
	return d
}

// signature is a DFAState's interning key: the bag of (state, alt, semCtx)
// triples in its config set, call context deliberately excluded.
func signature(configs *predconfig.Set) string {
	elems := configs.Elements()
	parts := make([]string, len(elems))
	for i, c := range elems {
		parts[i] = fmt.Sprintf("%d,%d,%s", c.State, c.Alt, semanticKey(c))
	}
	// order independent of insertion order, since two config sets built by
	// different closure traversals but containing the same (state, alt,
	// semCtx) triples must intern to the same DFAState.
	sorted := append([]string(nil), parts...)
	sortStrings(sorted)
	return strings.Join(sorted, "|")
}

func semanticKey(c predconfig.Config) string {
	if c.SemCtx == nil || c.SemCtx.IsNone() {
		return "NONE"
	}
	return semantic.String(c.SemCtx)
}

func sortStrings(s []string) {
	// small, allocation-free insertion sort: config sets at a single
	// decision are rarely large enough for this to matter, and it avoids
	// pulling in sort.Strings' reflection-free but still indirect Interface
	// dance for what is almost always a handful of elements.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// addStateLocked returns the existing State interned in d with the same config-set
// signature as configs, or interns a new one from newState (whose Configs
// field must equal configs). Configs is frozen (SetReadonly) the moment it
// is decided a new state is needed. Must be called with c's mutex held.
func (c *Cache) addStateLocked(d *DFA, newState *State) *State {
	sig := signature(newState.Configs)
	if existing, ok := d.states[sig]; ok {
		return existing
	}

	newState.Configs.SetReadonly()
	newState.Number = d.order
	d.order++
	d.states[sig] = newState
	return newState
}

// AddState interns newState into decision's DFA (or returns the
// already-interned equal state) under the cache's lock.
func (c *Cache) AddState(decision int, newState *State) *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.dfaLocked(decision)
	return c.addStateLocked(d, newState)
}

func (c *Cache) dfaLocked(decision int) *DFA {
	d, ok := c.dfas[decision]
	if !ok {
		d = newDFA()
		c.dfas[decision] = d
	}
	return d
}

// SetStart interns start as decision's s0, unless one has already been set
// (the race is resolved in favor of whichever goroutine gets the lock
// first; both computed the same start set from the same ATN, so either
// winner is correct).
func (c *Cache) SetStart(decision int, start *State) *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.dfaLocked(decision)
	if d.Start != nil {
		return d.Start
	}
	d.Start = c.addStateLocked(d, start)
	return d.Start
}

// AddEdge interns to into decision's DFA and points from's tokenType edge
// at it, unless from is Error (which never gains edges) or already nil, or
// tokenType exceeds the cache's max token type (the state is still interned
// and returned, but no edge is recorded).
func (c *Cache) AddEdge(decision int, from *State, tokenType int, to *State) *State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if to == Error {
		if from != nil && from != Error && tokenType <= c.maxTokenType {
			from.setEdge(tokenType, Error, c.maxTokenType)
		}
		return Error
	}

	d := c.dfaLocked(decision)
	interned := c.addStateLocked(d, to)
	if from != nil && from != Error && tokenType <= c.maxTokenType {
		from.setEdge(tokenType, interned, c.maxTokenType)
	}
	return interned
}

// Clear drops every interned state for decision, forcing the next predict()
// call to recompute s0 from scratch.
func (c *Cache) Clear(decision int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dfas, decision)
}

// ClearAll drops every decision's DFA.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dfas = make(map[int]*DFA)
}

// Stats reports, for introspection (cmd/predicttrace --stats), the number
// of interned states and computed edges for decision.
type Stats struct {
	States int
	Edges  int
}

// Stats returns state/edge counts for decision's DFA.
func (c *Cache) Stats(decision int) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.dfas[decision]
	if !ok {
		return Stats{}
	}

	edges := 0
	for _, st := range d.states {
		for _, e := range st.edges {
			if e != nil {
				edges++
			}
		}
	}
	return Stats{States: len(d.states), Edges: edges}
}

// String renders decision's DFA states for trace/debug output, in a
// "<START: ..., STATES: ...>" shape.
func (c *Cache) String(decision int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.dfas[decision]
	if !ok {
		return "<empty>"
	}

	keys := make([]string, 0, len(d.states))
	bySig := make(map[string]*State, len(d.states))
	for sig, st := range d.states {
		keys = append(keys, sig)
		bySig[sig] = st
	}
	sortStrings(keys)

	startNum := -1
	if d.Start != nil {
		startNum = d.Start.Number
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<START: s%d, STATES:", startNum))
	for i, k := range keys {
		sb.WriteString("\n\t")
		sb.WriteString(bySig[k].String())
		if i+1 < len(keys) {
			sb.WriteRune(',')
		}
	}
	sb.WriteString("\n>")
	return sb.String()
}

// Snapshot is the rezi-serializable rendition of one decision's DFA, used by
// cmd/predicttrace's --dump/--load flags to persist and warm-start a cache
// across process runs. It records every interned state's number,
// acceptance/prediction bookkeeping, and computed edges, but deliberately
// drops each state's config set: configs carry pcontext.Context values tied
// to the live interning Cache of the process that computed them, which a
// snapshot loaded into a fresh process has no way to reconstruct. A
// snapshot-loaded DFA therefore serves a warm-started cache for tokens whose
// edges were already recorded; reaching a state with no recorded edge for
// the next token still forces an ERROR rather than a fresh reach
// computation; see DESIGN.md.
type Snapshot struct {
	Decision int
	Start    int // state Number, or -1 if no start was recorded
	States   []StateSnapshot
}

// MarshalBinary implements encoding.BinaryMarshaler for rezi encoding.
func (snap Snapshot) MarshalBinary() ([]byte, error) {
	b := rezi.EncInt(snap.Decision)
	b = append(b, rezi.EncInt(snap.Start)...)
	b = append(b, encStateSnapshots(snap.States)...)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for rezi decoding.
func (snap *Snapshot) UnmarshalBinary(data []byte) error {
	decision, n, err := rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("decode Decision: %w", err)
	}
	data = data[n:]

	start, n, err := rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("decode Start: %w", err)
	}
	data = data[n:]

	states, _, err := decStateSnapshots(data)
	if err != nil {
		return fmt.Errorf("decode States: %w", err)
	}

	snap.Decision = decision
	snap.Start = start
	snap.States = states
	return nil
}

// StateSnapshot is one DFAState's persisted shape.
type StateSnapshot struct {
	Number              int
	IsAcceptState       bool
	Prediction          int
	RequiresFullContext bool
	Edges               []EdgeSnapshot
}

// MarshalBinary implements encoding.BinaryMarshaler for rezi encoding.
func (s StateSnapshot) MarshalBinary() ([]byte, error) {
	b := rezi.EncInt(s.Number)
	b = append(b, rezi.EncBool(s.IsAcceptState)...)
	b = append(b, rezi.EncInt(s.Prediction)...)
	b = append(b, rezi.EncBool(s.RequiresFullContext)...)
	b = append(b, encEdgeSnapshots(s.Edges)...)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for rezi decoding.
func (s *StateSnapshot) UnmarshalBinary(data []byte) error {
	number, n, err := rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("decode Number: %w", err)
	}
	data = data[n:]

	isAcceptState, n, err := rezi.DecBool(data)
	if err != nil {
		return fmt.Errorf("decode IsAcceptState: %w", err)
	}
	data = data[n:]

	prediction, n, err := rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("decode Prediction: %w", err)
	}
	data = data[n:]

	requiresFullContext, n, err := rezi.DecBool(data)
	if err != nil {
		return fmt.Errorf("decode RequiresFullContext: %w", err)
	}
	data = data[n:]

	edges, _, err := decEdgeSnapshots(data)
	if err != nil {
		return fmt.Errorf("decode Edges: %w", err)
	}

	s.Number = number
	s.IsAcceptState = isAcceptState
	s.Prediction = prediction
	s.RequiresFullContext = requiresFullContext
	s.Edges = edges
	return nil
}

// encStateSnapshots rezi-encodes a slice of StateSnapshot; see
// encEdgeSnapshots for why the generic rezi slice helpers aren't used here.
func encStateSnapshots(sl []StateSnapshot) []byte {
	if sl == nil {
		return rezi.EncInt(-1)
	}

	enc := make([]byte, 0)
	for i := range sl {
		enc = append(enc, rezi.EncBinary(sl[i])...)
	}

	return append(rezi.EncInt(len(enc)), enc...)
}

// decStateSnapshots is the counterpart of encStateSnapshots.
func decStateSnapshots(data []byte) ([]StateSnapshot, int, error) {
	var totalConsumed int

	toConsume, n, err := rezi.DecInt(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode byte count: %w", err)
	}
	data = data[n:]
	totalConsumed += n

	if toConsume == 0 {
		return []StateSnapshot{}, totalConsumed, nil
	} else if toConsume == -1 {
		return nil, totalConsumed, nil
	}

	if len(data) < toConsume {
		return nil, 0, fmt.Errorf("unexpected EOF")
	}

	sl := []StateSnapshot{}
	var consumedInSlice int
	for consumedInSlice < toConsume {
		var s StateSnapshot
		n, err := rezi.DecBinary(data, &s)
		if err != nil {
			return nil, totalConsumed, fmt.Errorf("decode item: %w", err)
		}
		totalConsumed += n
		consumedInSlice += n
		data = data[n:]

		sl = append(sl, s)
	}

	return sl, totalConsumed, nil
}

// EdgeSnapshot is one outgoing edge, recorded by token type rather than by
// the internal edges-slice index. ToError marks an edge that was recorded
// as the shared Error sentinel rather than a real state.
type EdgeSnapshot struct {
	TokenType int
	To        int
	ToError   bool
}

// MarshalBinary implements encoding.BinaryMarshaler for rezi encoding.
func (e EdgeSnapshot) MarshalBinary() ([]byte, error) {
	b := rezi.EncInt(e.TokenType)
	b = append(b, rezi.EncInt(e.To)...)
	b = append(b, rezi.EncBool(e.ToError)...)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for rezi decoding.
func (e *EdgeSnapshot) UnmarshalBinary(data []byte) error {
	tokenType, n, err := rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("decode TokenType: %w", err)
	}
	data = data[n:]

	to, n, err := rezi.DecInt(data)
	if err != nil {
		return fmt.Errorf("decode To: %w", err)
	}
	data = data[n:]

	toError, _, err := rezi.DecBool(data)
	if err != nil {
		return fmt.Errorf("decode ToError: %w", err)
	}

	e.TokenType = tokenType
	e.To = to
	e.ToError = toError
	return nil
}

// encEdgeSnapshots rezi-encodes a slice of EdgeSnapshot without relying on
// rezi's generic slice helpers, which require the element type's
// UnmarshalBinary to be satisfiable on a non-pointer type parameter.
func encEdgeSnapshots(sl []EdgeSnapshot) []byte {
	if sl == nil {
		return rezi.EncInt(-1)
	}

	enc := make([]byte, 0)
	for i := range sl {
		enc = append(enc, rezi.EncBinary(sl[i])...)
	}

	return append(rezi.EncInt(len(enc)), enc...)
}

// decEdgeSnapshots is the counterpart of encEdgeSnapshots.
func decEdgeSnapshots(data []byte) ([]EdgeSnapshot, int, error) {
	var totalConsumed int

	toConsume, n, err := rezi.DecInt(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode byte count: %w", err)
	}
	data = data[n:]
	totalConsumed += n

	if toConsume == 0 {
		return []EdgeSnapshot{}, totalConsumed, nil
	} else if toConsume == -1 {
		return nil, totalConsumed, nil
	}

	if len(data) < toConsume {
		return nil, 0, fmt.Errorf("unexpected EOF")
	}

	sl := []EdgeSnapshot{}
	var consumedInSlice int
	for consumedInSlice < toConsume {
		var e EdgeSnapshot
		n, err := rezi.DecBinary(data, &e)
		if err != nil {
			return nil, totalConsumed, fmt.Errorf("decode item: %w", err)
		}
		totalConsumed += n
		consumedInSlice += n
		data = data[n:]

		sl = append(sl, e)
	}

	return sl, totalConsumed, nil
}

// Dump renders decision's DFA into a Snapshot suitable for rezi encoding.
func (c *Cache) Dump(decision int) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Decision: decision, Start: -1}
	d, ok := c.dfas[decision]
	if !ok {
		return snap
	}
	if d.Start != nil {
		snap.Start = d.Start.Number
	}

	for _, st := range d.states {
		ss := StateSnapshot{
			Number:              st.Number,
			IsAcceptState:       st.IsAcceptState,
			Prediction:          st.Prediction,
			RequiresFullContext: st.RequiresFullContext,
		}
		for idx, e := range st.edges {
			if e == nil {
				continue
			}
			tokenType := idx - 1
			if e == Error {
				ss.Edges = append(ss.Edges, EdgeSnapshot{TokenType: tokenType, ToError: true})
			} else {
				ss.Edges = append(ss.Edges, EdgeSnapshot{TokenType: tokenType, To: e.Number})
			}
		}
		snap.States = append(snap.States, ss)
	}

	sort.Slice(snap.States, func(i, j int) bool { return snap.States[i].Number < snap.States[j].Number })
	return snap
}

// EncodeSnapshot returns the rezi-encoded bytes of snap.
func EncodeSnapshot(snap Snapshot) []byte {
	return rezi.EncBinary(snap)
}

// DecodeSnapshot decodes data (as produced by EncodeSnapshot) back into a
// Snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	n, err := rezi.DecBinary(data, &snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("REZI decode: %w", err)
	}
	if n != len(data) {
		return Snapshot{}, fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes", n, len(data))
	}
	return snap, nil
}

// Load rehydrates decision's DFA from a previously-dumped Snapshot. Loaded
// states carry no config set (see Snapshot's doc comment): they report
// IsAcceptState/Prediction/RequiresFullContext and their recorded edges
// exactly as dumped, but their Configs is an empty readonly set, so a
// predictor that reaches one and asks for an edge it didn't record computes
// an empty reach there and records an edge to Error; callers that warm-start a partially-explored DFA should ClearDFA on first
// miss instead of trusting a half-loaded cache.
func (c *Cache) Load(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := newDFA()
	byNumber := make(map[int]*State, len(snap.States))
	for _, ss := range snap.States {
		st := &State{
			Number:              ss.Number,
			IsAcceptState:       ss.IsAcceptState,
			Prediction:          ss.Prediction,
			RequiresFullContext: ss.RequiresFullContext,
			Configs:             predconfig.NewSet(false),
		}
		st.Configs.SetReadonly()
		byNumber[ss.Number] = st
	}
	for _, ss := range snap.States {
		st := byNumber[ss.Number]
		for _, es := range ss.Edges {
			to := Error
			if !es.ToError {
				to = byNumber[es.To]
			}
			st.setEdge(es.TokenType, to, c.maxTokenType)
		}
	}

	for _, st := range byNumber {
		d.states[fmt.Sprintf("loaded:%d", st.Number)] = st
		if st.Number+1 > d.order {
			d.order = st.Number + 1
		}
	}
	if snap.Start >= 0 {
		d.Start = byNumber[snap.Start]
	}

	c.dfas[snap.Decision] = d
}
