// Package util holds small generic container and helper types shared across
// the prediction core: a bit set for alt-subset bookkeeping, and the
// comma/"or"-joined text list helper used when rendering human-facing
// messages such as expected-token lists.
package util

import (
	"strings"
)

// MakeTextList gives a nice list of things based on their display name.
func MakeTextList(items []string) string {
	if len(items) < 1 {
		return ""
	}

	output := ""

	if len(items) == 1 {
		output += items[0]
	} else if len(items) == 2 {
		output += items[0] + " or " + items[1]
	} else {
		// if its more than two, use an oxford comma
		items[len(items)-1] = "or " + items[len(items)-1]
		output += strings.Join(items, ", ")
	}

	return output
}

