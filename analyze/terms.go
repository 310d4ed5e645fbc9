package analyze

import "github.com/emirpasic/gods/sets/treeset"

// lookaheadTerm is a FIRST/FOLLOW-set element: either a lookahead terminal
// identified by its regex and passive flag, or the null marker (epsilon in a
// FIRST set, end-of-input in a FOLLOW set — the grammar reuses one sentinel
// for both, following original_source/bnf.py's use of Python's None).
type lookaheadTerm struct {
	Regex   string
	Passive bool
	IsNull  bool
}

var nullTerm = lookaheadTerm{IsNull: true}

func termCompare(a, b interface{}) int {
	x, y := a.(lookaheadTerm), b.(lookaheadTerm)
	if x.IsNull != y.IsNull {
		if x.IsNull {
			return -1
		}
		return 1
	}
	if x.IsNull {
		return 0
	}
	if x.Regex != y.Regex {
		if x.Regex < y.Regex {
			return -1
		}
		return 1
	}
	if x.Passive != y.Passive {
		if !x.Passive {
			return -1
		}
		return 1
	}
	return 0
}

func newTermSet() *treeset.Set {
	return treeset.NewWith(termCompare)
}

func unionInto(dst *treeset.Set, src *treeset.Set) {
	for _, v := range src.Values() {
		dst.Add(v)
	}
}
