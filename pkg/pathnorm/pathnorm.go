// Package pathnorm normalizes filesystem paths to a canonical string form
// so the same file is recognized as the same key regardless of which
// Unicode normalization form the OS or the caller handed us.
package pathnorm

import "golang.org/x/text/unicode/norm"

// Normalize returns s in Unicode Normalization Form C. It is applied at
// every boundary where a path becomes a lookup key: the database path
// column, the search index path term, and tag text.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Equal reports whether a and b denote the same path once both are
// normalized to NFC.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
