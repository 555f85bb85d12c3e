// Package keys canonicalizes district names so rows from different sources
// join on the same key.
package keys

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/petatlas/internal/diag"
)

// Normalize returns the canonical form of a district name: surrounding
// whitespace and NUL padding removed, then NFC composed. No case folding or
// transliteration is applied. An empty result is a *diag.NormalizationError.
func Normalize(raw string) (string, error) {
	s := Canonical(raw)
	if s == "" {
		return "", &diag.NormalizationError{Raw: raw}
	}
	return s, nil
}

// Canonical is Normalize without the emptiness check.
func Canonical(raw string) string {
	s := strings.TrimFunc(raw, isPadding)
	// NFC may recompose a trailing combining mark onto padding, so trim again.
	return strings.TrimFunc(norm.NFC.String(s), isPadding)
}

func isPadding(r rune) bool {
	return r == 0 || r == '\uFEFF' || unicode.IsSpace(r)
}

// Column names a logical column and the header spellings it may appear
// under across sources.
type Column struct {
	Field string
	Names []string
}

// Resolve returns the index of col in header. Header cells and aliases are
// compared in canonical form, so " 동별" matches "동별". Returns -1 when no
// alias matches.
func Resolve(header []string, col Column) int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		c := Canonical(h)
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	for _, name := range col.Names {
		if i, ok := idx[Canonical(name)]; ok {
			return i
		}
	}
	return -1
}

// Set is a lookup of canonical district names.
type Set map[string]struct{}

// NewSet builds a Set from canonical names.
func NewSet(names []string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}
