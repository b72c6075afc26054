package crdt

import (
	"strconv"
	"strings"
)

// Position is a dense position identifier for RGA elements: a
// dotted-decimal sequence of integers, compared component-wise with
// the usual "shorter prefix sorts first" rule (like a version number).
// A lone negative leading component is the fallback emitted when no
// position exists below an all-zero prefix (see genBefore) — it still
// compares correctly because -1 < 0 at the first component.
type Position []int64

// String renders a Position as a dotted-decimal string, e.g. "0.1.5".
func (p Position) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ".")
}

// ParsePosition parses a dotted-decimal string back into a Position.
func ParsePosition(s string) (Position, error) {
	if s == "" {
		return nil, errorf("ParsePosition", "empty position")
	}
	parts := strings.Split(s, ".")
	out := make(Position, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, errorf("ParsePosition", "invalid component %q: %v", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// Compare orders two positions: the first differing component decides;
// if one is a proper prefix of the other, the shorter one sorts first.
func (p Position) Compare(other Position) int {
	for i := 0; i < len(p) && i < len(other); i++ {
		if p[i] != other[i] {
			if p[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	default:
		return 0
	}
}

func (p Position) clone() Position {
	return append(Position(nil), p...)
}

// genAfter returns a position strictly greater than p: same prefix,
// last component incremented.
func genAfter(p Position) Position {
	if len(p) == 0 {
		return Position{1}
	}
	out := p.clone()
	out[len(out)-1]++
	return out
}

// genBefore returns a position strictly less than p. It decrements the
// rightmost non-zero component and truncates anything after it; if p
// is all zeros, it falls back to a single negative component.
func genBefore(p Position) Position {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0 {
			out := append(Position(nil), p[:i+1]...)
			out[i]--
			return out
		}
	}
	return Position{-1}
}

// genBetween returns a position strictly between lo and hi (lo < hi).
func genBetween(lo, hi Position) Position {
	n := len(lo)
	if n > len(hi) {
		n = len(hi)
	}
	for i := 0; i < n; i++ {
		if lo[i] != hi[i] {
			if hi[i] > lo[i]+1 {
				mid := lo[i] + (hi[i]-lo[i])/2
				out := append(Position(nil), lo[:i]...)
				return append(out, mid)
			}
			// hi[i] == lo[i]+1: no integer fits between them at this
			// level, so go one level deeper. Appending (rather than
			// truncating) keeps every component of lo intact, which is
			// what guarantees the result is still greater than the
			// full lo, not just greater than its truncated prefix.
			return append(lo.clone(), 0)
		}
	}
	// lo is a proper prefix of hi: any extension of lo already sorts
	// after lo (shorter-prefix-sorts-first), so the new component only
	// needs to sort before hi's next component.
	next := hi[len(lo)]
	var extra int64
	if next >= 1 {
		extra = next / 2
	} else {
		extra = next - 1
	}
	return append(lo.clone(), extra)
}

// genPosition generates a position strictly between lo and hi, where
// either bound may be absent (nil means "no bound on this side").
func genPosition(lo, hi Position) Position {
	switch {
	case lo == nil && hi == nil:
		return Position{0, 0}
	case lo == nil:
		return genBefore(hi)
	case hi == nil:
		return genAfter(lo)
	default:
		return genBetween(lo, hi)
	}
}
