package version

import (
	"strings"
)

// Ordering is the result of comparing two version strings.
type Ordering int

// Ordering values.
const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// String returns a lowercase name for the ordering.
func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// Compare orders two version strings.
//
// Both strings are split on "." and compared segment by segment. Segments that
// are all digits on both sides compare numerically (of any length); anything
// else compares as plain strings. A missing trailing segment counts as "0"
// against a numeric segment and as "" otherwise, so "1.0" equals "1.0.0" but
// "1.0" is less than "1.0.1" and "1.0.beta".
func Compare(a, b string) Ordering {
	as := segments(a)
	bs := segments(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		x, xok := segmentAt(as, i)
		y, yok := segmentAt(bs, i)
		if !xok {
			x = missingFor(y)
		}
		if !yok {
			y = missingFor(x)
		}
		if c := compareSegment(x, y); c != Equal {
			return c
		}
	}
	return Equal
}

// Newer reports whether candidate is strictly greater than installed.
func Newer(candidate, installed string) bool {
	return Compare(candidate, installed) == Greater
}

func segments(v string) []string {
	v = strings.TrimSpace(v)
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') && isDigit(v[1]) {
		v = v[1:]
	}
	if v == "" {
		return nil
	}
	return strings.Split(v, ".")
}

func segmentAt(s []string, i int) (string, bool) {
	if i < len(s) {
		return s[i], true
	}
	return "", false
}

// missingFor returns the stand-in for an absent segment compared against other.
func missingFor(other string) string {
	if isNumeric(other) {
		return "0"
	}
	return ""
}

func compareSegment(x, y string) Ordering {
	if isNumeric(x) && isNumeric(y) {
		return compareNumeric(x, y)
	}
	switch {
	case x < y:
		return Less
	case x > y:
		return Greater
	default:
		return Equal
	}
}

// compareNumeric compares two digit strings without converting them, so
// date-stamped build numbers never overflow.
func compareNumeric(x, y string) Ordering {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return Less
		}
		return Greater
	}
	switch {
	case x < y:
		return Less
	case x > y:
		return Greater
	default:
		return Equal
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
