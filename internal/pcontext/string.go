package pcontext

import (
	"fmt"
	"strings"
)

// IsEmpty reports whether ctx is the Empty sentinel.
func IsEmpty(ctx Context) bool {
	return ctx == Empty
}

// Key returns the full structural key of ctx, recursively encoding its
// entire parent chain. Two contexts have equal Key iff they represent the
// same stack set, which is exactly what config-set merging needs to decide
// whether two configs' contexts are already identical or must be merged.
func Key(ctx Context) string {
	return ctx.equalKey()
}

// String renders ctx as e.g. "[3 8]" (Singleton/Array, one entry per
// return state) or "[]" for Empty, for use in trace output and test
// failure messages. It does not recurse into parents; callers that need the
// full stack should walk ParentAt themselves.
func String(ctx Context) string {
	var sb strings.Builder
	sb.WriteRune('[')
	for i := 0; i < ctx.Size(); i++ {
		if i > 0 {
			sb.WriteRune(' ')
		}
		rs := ctx.ReturnStateAt(i)
		if rs == EmptyReturnState {
			sb.WriteString("$")
		} else {
			sb.WriteString(fmt.Sprintf("%d", rs))
		}
	}
	sb.WriteRune(']')
	return sb.String()
}
