// Package tuple implements the CSV-of-strings tuple contract: splitting a
// stored tuple or query template into its attribute fields, and the
// wildcard-aware match used by every partial-match scan. Grounded on
// original_source/tuple.c (tupleVals, tupleMatch), reworked as ordinary
// string splitting instead of in-place null-termination tricks over a
// caller-owned char buffer.
package tuple

import (
	"fmt"
	"strings"
)

// Wildcard is the reserved field value meaning "unspecified" in a query
// template. It must never appear at the start of a stored field.
const Wildcard = "?"

// ErrArity is returned when a tuple's field count does not match the
// relation's declared number of attributes.
type ErrArity struct {
	Tuple string
	Want  int
	Got   int
}

func (e *ErrArity) Error() string {
	return fmt.Sprintf("tuple: %q has %d fields, want %d", e.Tuple, e.Got, e.Want)
}

// Split parses t into exactly nattrs comma-delimited fields. A mismatched
// field count is a MalformedTuple error per spec.md §7 - caller-visible,
// never silently truncated or padded.
func Split(t string, nattrs int) ([]string, error) {
	fields := strings.Split(t, ",")
	if len(fields) != nattrs {
		return nil, &ErrArity{Tuple: t, Want: nattrs, Got: len(fields)}
	}
	return fields, nil
}

// IsWildcard reports whether field is the reserved "unspecified" marker.
func IsWildcard(field string) bool {
	return field == Wildcard
}

// Match reports whether two same-arity field lists agree on every position
// where neither side is a wildcard. This is the matching primitive used
// both by the query scanner and, defensively, by any other caller: a
// wildcard on either side of a position always matches.
func Match(a, b []string) bool {
	for i := range a {
		if IsWildcard(a[i]) || IsWildcard(b[i]) {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
