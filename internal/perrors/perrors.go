// Package perrors defines the error kinds the prediction core raises:
// NoViableAlternative, InvalidATN, and InternalInvariant. Each carries a
// technical Error() message and, where one applies, a rosed-wrapped human
// message suitable for a diagnostic listener to print.
package perrors

import (
	"errors"
	"fmt"

	"github.com/dekarrin/rosed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dekarrin/allstar/internal/util"
)

// noViableAlt is raised when reach is empty and no alt could finish the
// decision's entry rule. It carries enough of the failed decision's state
// to build a useful diagnostic: the offending token's text, the decision
// index, the start/stop token indices of the attempt, and (optionally) the
// human names of the tokens that would have been accepted instead.
type noViableAlt struct {
	decision   int
	startIndex int
	stopIndex  int
	offending  string
	expected   []string
}

// NoViableAlternative returns a new no-viable-alternative error for the
// given decision and token span. offendingToken is the token's rendered
// text (e.g. from a tokenstream.Token's String method). expected, if given,
// is the human names of the tokens the decision would have accepted
// instead, for Human's "expected X, Y, or Z" clause.
func NoViableAlternative(decision, startIndex, stopIndex int, offendingToken string, expected ...string) error {
	return &noViableAlt{decision: decision, startIndex: startIndex, stopIndex: stopIndex, offending: offendingToken, expected: expected}
}

func (e *noViableAlt) Error() string {
	return fmt.Sprintf("no viable alternative at decision %d (tokens %d..%d): unexpected %s", e.decision, e.startIndex, e.stopIndex, e.offending)
}

// Human renders a wrapped, operator-facing rendition of the error, with an
// "expected X, Y, or Z" clause when token labels are known, title-cased the
// way a message meant for a terminal (rather than a log line)
// conventionally starts a sentence.
func (e *noViableAlt) Human() string {
	msg := fmt.Sprintf("the parser could not find a matching rule for %s starting at token %d", e.offending, e.startIndex)
	if len(e.expected) > 0 {
		msg += fmt.Sprintf("; expected %s", util.MakeTextList(append([]string(nil), e.expected...)))
	}
	msg = titleCaser.String(msg[:1]) + msg[1:]
	return rosed.Edit(msg).Wrap(72).String()
}

var titleCaser = cases.Title(language.English)

// Decision returns the decision index the failed prediction was for.
func (e *noViableAlt) Decision() int { return e.decision }

// StartIndex returns the token index the attempt began at.
func (e *noViableAlt) StartIndex() int { return e.startIndex }

// StopIndex returns the token index the attempt failed at.
func (e *noViableAlt) StopIndex() int { return e.stopIndex }

// IsNoViableAlternative reports whether err is (or wraps) a
// NoViableAlternative error.
func IsNoViableAlternative(err error) bool {
	var nva *noViableAlt
	return errors.As(err, &nva)
}

// invalidATN is the error kind for a malformed ATN; it concerns building a
// Graph, never prediction itself. atn.Graph.Validate does not return it (it
// reports a plain error).
type invalidATN struct {
	msg string
}

// InvalidATN returns a new InvalidATN error with the given technical
// message.
func InvalidATN(format string, a ...interface{}) error {
	return &invalidATN{msg: fmt.Sprintf(format, a...)}
}

func (e *invalidATN) Error() string { return "invalid ATN: " + e.msg }

// internalInvariant marks a condition the prediction algorithm asserts can
// never happen (e.g. a full-context closure dipping into outer context). It
// is a bug, not a recoverable runtime condition, and is usually raised via
// Assertf rather than constructed directly.
type internalInvariant struct {
	msg string
}

func (e *internalInvariant) Error() string { return "internal invariant violated: " + e.msg }

// Assertf panics with an internalInvariant if cond is false. Prediction code
// uses this for conditions the algorithm itself guarantees (e.g. "a
// rule-stop config's context is empty at this point"), never for conditions
// that arise from caller-supplied input.
func Assertf(cond bool, format string, a ...interface{}) {
	if !cond {
		panic(&internalInvariant{msg: fmt.Sprintf(format, a...)})
	}
}
