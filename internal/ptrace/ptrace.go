// Package ptrace implements the prediction core's trace/listener hooks:
// the three structured error-listener events (ReportAmbiguity,
// ReportAttemptingFullContext, ReportContextSensitivity), plus a freeform
// line listener that receives one rendered line per structured event (the
// predictor emits no other trace lines). Each structured event is stamped with a
// correlation ID so a caller aggregating events from many concurrent
// predictions sharing one DFA cache can group them back by attempt.
package ptrace

import (
	"fmt"

	"github.com/dekarrin/allstar/internal/util"
	"github.com/google/uuid"
)

// Listener receives freeform trace lines, e.g. "attempting full context at
// decision 0 (tokens 0..0): conflicting={1, 2}". Registering nil disables
// tracing.
type Listener func(line string)

// ConfigSetStringer renders a config set for trace/event payloads without
// ptrace depending on predconfig (which would create an import cycle with
// packages that both predconfig and ptrace are consumed by).
type ConfigSetStringer interface {
	String() string
}

// Events receives the three structured error-listener callbacks.
type Events interface {
	ReportAmbiguity(attemptID uuid.UUID, decision, startIndex, stopIndex int, exact bool, ambigAlts *util.BitSet, configs ConfigSetStringer)
	ReportAttemptingFullContext(attemptID uuid.UUID, decision, startIndex, stopIndex int, conflictingAlts *util.BitSet, configs ConfigSetStringer)
	ReportContextSensitivity(attemptID uuid.UUID, decision, startIndex, stopIndex, prediction int, configs ConfigSetStringer)
}

// Tracer bundles an optional freeform Listener and an optional structured
// Events sink; a predictor holds one Tracer and calls through it
// unconditionally, letting Tracer itself decide whether anything is
// actually wired up.
type Tracer struct {
	listener Listener
	events   Events
}

// New returns an empty Tracer (no listener, no events sink): every method is
// then a cheap no-op, so predictor code never needs a nil check of its own.
func New() *Tracer {
	return &Tracer{}
}

// SetListener installs (or, given nil, removes) the freeform trace line
// listener.
func (t *Tracer) SetListener(l Listener) {
	t.listener = l
}

// SetEvents installs (or, given nil, removes) the structured events sink.
func (t *Tracer) SetEvents(e Events) {
	t.events = e
}

func (t *Tracer) notifyFn(fn func() string) {
	if t.listener != nil {
		t.listener(fn())
	}
}

// Trace emits a freeform formatted line if a listener is registered.
func (t *Tracer) Trace(format string, args ...interface{}) {
	t.notifyFn(func() string { return fmt.Sprintf(format, args...) })
}

// NewAttemptID mints a fresh correlation ID for one predict() call, used to
// tie together every structured event it emits.
func NewAttemptID() uuid.UUID {
	return uuid.New()
}

// Ambiguity reports a detected ambiguity, if an Events sink is registered.
func (t *Tracer) Ambiguity(attemptID uuid.UUID, decision, startIndex, stopIndex int, exact bool, ambigAlts *util.BitSet, configs ConfigSetStringer) {
	if t.events != nil {
		t.events.ReportAmbiguity(attemptID, decision, startIndex, stopIndex, exact, ambigAlts, configs)
	}
	t.Trace("ambiguity at decision %d (tokens %d..%d): alts=%s exact=%v", decision, startIndex, stopIndex, ambigAlts, exact)
}

// AttemptingFullContext reports an SLL-to-LL failover, if an Events sink is
// registered.
func (t *Tracer) AttemptingFullContext(attemptID uuid.UUID, decision, startIndex, stopIndex int, conflictingAlts *util.BitSet, configs ConfigSetStringer) {
	if t.events != nil {
		t.events.ReportAttemptingFullContext(attemptID, decision, startIndex, stopIndex, conflictingAlts, configs)
	}
	t.Trace("attempting full context at decision %d (tokens %d..%d): conflicting=%s", decision, startIndex, stopIndex, conflictingAlts)
}

// ContextSensitivity reports that full context was needed to resolve a
// decision SLL could not, if an Events sink is registered.
func (t *Tracer) ContextSensitivity(attemptID uuid.UUID, decision, startIndex, stopIndex, prediction int, configs ConfigSetStringer) {
	if t.events != nil {
		t.events.ReportContextSensitivity(attemptID, decision, startIndex, stopIndex, prediction, configs)
	}
	t.Trace("context sensitivity at decision %d (tokens %d..%d): prediction=%d", decision, startIndex, stopIndex, prediction)
}
