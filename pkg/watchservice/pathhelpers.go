package watchservice

import (
	"path/filepath"
	"strings"
)

// isParent reports whether a is a strict ancestor directory of b: every
// path component of a must match the corresponding component of b, and b
// must have at least one additional component beyond a.
func isParent(a, b string) bool {
	a = filepath.Clean(a)
	b = filepath.Clean(b)
	if a == b {
		return false
	}
	aParts := strings.Split(a, string(filepath.Separator))
	if a == string(filepath.Separator) {
		aParts = aParts[:1] // the root is the single empty leading component
	}
	bParts := strings.Split(b, string(filepath.Separator))
	if len(aParts) >= len(bParts) {
		return false
	}
	for i, part := range aParts {
		if bParts[i] != part {
			return false
		}
	}
	return true
}

// overlaps reports whether a and b would violate the parent/child
// exclusion invariant in either direction, or are the same path outright.
func overlaps(a, b string) bool {
	a = filepath.Clean(a)
	b = filepath.Clean(b)
	return a == b || isParent(a, b) || isParent(b, a)
}
