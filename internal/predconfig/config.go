// Package predconfig implements ATN configurations and the merging config
// sets the reach/closure computation builds them into. A Config is a
// position in the ATN plus enough context to know how prediction got there;
// a Set collapses configs that agree on everything but their call context,
// merging contexts instead of keeping duplicates.
package predconfig

import (
	"fmt"

	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/semantic"
)

// Config is the 4-tuple (State, Alt, Context, SemanticContext) plus
// ReachesIntoOuterContext bookkeeping. Configs are
// value-like: ReachesIntoOuterContext is the one mutable-looking field, but
// "mutating" it always means building a new Config (With* methods below),
// never writing through a shared pointer, so a Config already placed in a
// Set is safe to keep referencing it.
type Config struct {
	State    int
	Alt      int
	Context  pcontext.Context
	SemCtx   semantic.Context

	// ReachesIntoOuterContext counts how many rule-stop "falling off the end
	// of a rule with no caller" hops this config's closure has taken. A
	// nonzero count marks a config that closure followed past the bounds of
	// the context it was given, which getAltThatFinishedDecisionEntryRule
	// and dipsIntoOuterContext both key off of.
	ReachesIntoOuterContext int
}

// New returns a Config with SemCtx defaulted to NONE.
func New(state, alt int, ctx pcontext.Context) Config {
	return Config{State: state, Alt: alt, Context: ctx, SemCtx: semantic.None()}
}

// WithContext returns a copy of c with a different Context.
func (c Config) WithContext(ctx pcontext.Context) Config {
	c.Context = ctx
	return c
}

// WithSemCtx returns a copy of c with a different SemCtx.
func (c Config) WithSemCtx(sc semantic.Context) Config {
	c.SemCtx = sc
	return c
}

// WithReachesIntoOuterContext returns a copy of c with
// ReachesIntoOuterContext set to n.
func (c Config) WithReachesIntoOuterContext(n int) Config {
	c.ReachesIntoOuterContext = n
	return c
}

// Equal reports whether two configs are the full 4-tuple equal. Context is
// compared by identity (equalKey, which is identity-equivalent once both
// sides have been through the same pcontext.Cache).
func (c Config) Equal(o Config) bool {
	return c.State == o.State && c.Alt == o.Alt && c.semCtxKey() == o.semCtxKey() && c.contextKey() == o.contextKey()
}

// mergeKey identifies configs eligible to be merged by Set.Add: same state,
// alt, and semantic context, differing only in call context.
func (c Config) mergeKey() string {
	return fmt.Sprintf("%d,%d,%s", c.State, c.Alt, c.semCtxKey())
}

func (c Config) semCtxKey() string {
	if c.SemCtx == nil {
		return "NONE"
	}
	return semantic.String(c.SemCtx)
}

func (c Config) contextKey() string {
	return pcontext.Key(c.Context)
}

// String renders a config for trace output, e.g. "(4,2,[7])".
func (c Config) String() string {
	return fmt.Sprintf("(%d,%d,%s)", c.State, c.Alt, pcontext.String(c.Context))
}
