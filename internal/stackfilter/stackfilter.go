// Package stackfilter captures call stacks from the Go runtime and picks the
// frames that matter to a developer, skipping framework and collector code.
package stackfilter

import (
	"strings"

	"debugbar/internal/domain"
)

// DefaultLimit is the number of frames kept by RelevantFrames when no
// positive limit is given.
const DefaultLimit = 5

// DefaultDepth is how many frames Capture records.
const DefaultDepth = 40

// DefaultExcludedPaths are path substrings of code that records events on
// behalf of the application and should never be reported as an origin.
var DefaultExcludedPaths = []string{
	"/internal/collector/",
	"/internal/debugbar/",
	"/internal/sqlhook/",
	"/internal/middleware/",
	"runtime/",
	"database/sql/",
	"net/http/",
}

// NormalizePath converts Windows separators to forward slashes.
func NormalizePath(file string) string {
	return strings.ReplaceAll(file, `\`, "/")
}

// IsExcluded reports whether file contains any of the excluded substrings.
// Matching is a plain substring test on the normalized path.
func IsExcluded(file string, excluded []string) bool {
	normalized := NormalizePath(file)
	for _, p := range excluded {
		if p != "" && strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// FirstRelevantFrame returns the innermost frame whose file is known and not
// excluded. When every frame is excluded the first frame of the stack is
// returned instead. ok is false only for an empty stack.
func FirstRelevantFrame(stack []domain.Frame, excluded []string) (domain.Frame, bool) {
	if len(stack) == 0 {
		return domain.Frame{}, false
	}
	for _, f := range stack {
		if f.File == "" || IsExcluded(f.File, excluded) {
			continue
		}
		return f, true
	}
	return stack[0], true
}

// RelevantFrames returns every qualifying frame in stack order, capped at
// limit. A frame qualifies when it has a file outside the excluded paths and
// a namespace or function name. A non-positive limit means DefaultLimit.
func RelevantFrames(stack []domain.Frame, excluded []string, limit int) []domain.Frame {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]domain.Frame, 0, limit)
	for _, f := range stack {
		if len(out) == limit {
			break
		}
		if _, ok := qualify(f, excluded); ok {
			out = append(out, f)
		}
	}
	return out
}

// qualify is the per-frame check behind RelevantFrames; it returns the
// zero frame and false for frames that must be dropped.
func qualify(f domain.Frame, excluded []string) (domain.Frame, bool) {
	if f.File == "" || !f.HasSymbol() || IsExcluded(f.File, excluded) {
		return domain.Frame{}, false
	}
	return f, true
}
