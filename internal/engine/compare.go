package engine

import (
	"strings"

	"sqlmimic/internal/schema"
)

// compareValues orders two non-null values: strings lexicographically when
// both sides are strings, numerically otherwise (booleans and numeric-looking
// strings coerce). NULL sorts before everything; callers comparing for
// equality must handle NULL before calling.
func compareValues(a, b schema.Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs)
	}
	af, _ := schema.ToNumber(a)
	bf, _ := schema.ToNumber(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}
