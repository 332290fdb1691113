// Package diff provides unified-diff generation utilities for changed parts.
// It uses github.com/pmezard/go-difflib/difflib to produce classic unified
// patches (---/+++ headers, @@ hunks, lines prefixed with ' ', '-', '+').
package diff

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Options controls unified-diff generation.
type Options struct {
	// Context controls the number of context lines in unified hunks.
	// If 0, defaults to 3, per the part-diff component's line-based LCS
	// contract.
	Context int
}

// Unified produces a classic unified line diff for a↦b, decoded as UTF-8.
// Unlike a size-bounded patch generator, this never truncates or omits
// output: callers that need the diff get the whole thing.
func Unified(aName, bName string, a, b string, opt Options) string {
	ctx := opt.Context
	if ctx <= 0 {
		ctx = 3
	}

	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(a),
		B:        splitLinesKeepNL(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return ""
	}
	return s
}

// splitLinesKeepNL splits into lines and keeps newline characters, which
// produces better unified hunks. A final line without a newline gets one, so
// every line of the diff output ends in '\n'; as a result, a difference
// confined to the presence of a final newline does not show in the diff.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}
	lines[last] += "\n"
	return lines
}
