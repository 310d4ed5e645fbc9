// Package analyze computes the grammar-level lookahead information the
// emitter needs to synthesize a deterministic pattern-matching context for
// each nonterminal: FIRST sets (per production), FOLLOW sets, and the
// resulting active/passive lookahead tables.
//
// Grounded on original_source/bnf.py's BNF class, restructured around an
// explicit recursion guard (the original relies on Python's recursion limit
// and functools.lru_cache; Go has neither) and styled after the
// worklist/tracer conventions of the teacher's lr/tables.go.
package analyze

import (
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/npillmayer/schuko/tracing"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

func tracer() tracing.Trace {
	return tracing.Select("sbnf.analyze")
}

// Tables is the complete result of analyzing a normalized Grammar: per-symbol
// FOLLOW sets and, per nonterminal (both passive and non-passive variants),
// the active ("np") and passive ("p") lookahead tables the emitter walks to
// build branch-point contexts.
type Tables struct {
	g         *grammar.Grammar
	follow    map[string]*treeset.Set
	npTable   map[string]LookaheadTable
	pTable    map[string]LookaheadTable
	sortTable map[string]int
}

// analysis carries the mutable state of a single Analyze call: the FIRST-set
// memo and the left-recursion guard stack, both keyed by Nonterminal.Key().
type analysis struct {
	g          *grammar.Grammar
	firstCache map[string][]*treeset.Set
	guard      []string
}

// Analyze computes FIRST sets, FOLLOW sets, and lookahead tables for g.
// It fails with a GrammarError if g references an undefined nonterminal or
// contains a left-recursive cycle.
func Analyze(g *grammar.Grammar) (*Tables, error) {
	t := tracer()
	t.Debugf("analyzing grammar with %d rules", len(g.Nonterminals()))

	if err := checkReferences(g); err != nil {
		return nil, err
	}

	a := &analysis{g: g, firstCache: map[string][]*treeset.Set{}}

	// Prime the FIRST cache for every rule (both variants) up front so a
	// left-recursive cycle is reported against the rule that started it,
	// not against whichever rule happened to be analyzed first.
	for _, head := range g.Nonterminals() {
		for _, passive := range [2]bool{false, true} {
			nt := head
			nt.Passive = passive
			if _, err := a.firstOfSymbol(nt); err != nil {
				return nil, err
			}
		}
	}

	follow, err := computeFollow(g, a)
	if err != nil {
		return nil, err
	}

	tbl := &Tables{g: g, follow: follow}
	if err := tbl.build(a); err != nil {
		return nil, err
	}
	return tbl, nil
}

// checkReferences verifies every Nonterminal occurring in any production is
// defined (as itself or its non-passive variant) somewhere in g. This is the
// "every referenced nonterminal exists" invariant deferred from normalize.
func checkReferences(g *grammar.Grammar) error {
	for _, head := range g.Nonterminals() {
		alt, _ := g.Lookup(head)
		for _, prod := range alt.Productions {
			for _, sym := range prod.Symbols() {
				nt, ok := sym.(grammar.Nonterminal)
				if !ok {
					continue
				}
				if !g.Has(nt) {
					return grammar.NewGrammarError("rule %q references undefined rule %q", head.Name(), nt.Name())
				}
			}
		}
	}
	return nil
}

// firstOfSymbol returns sym's FIRST set, one set per alternative production
// (a single-element slice for a Terminal, or for a Nonterminal whose rule has
// one production). Results are memoized per exact symbol (symbol name plus
// passive flag).
func (a *analysis) firstOfSymbol(sym grammar.Symbol) ([]*treeset.Set, error) {
	switch v := sym.(type) {
	case grammar.Terminal:
		s := newTermSet()
		s.Add(lookaheadTerm{Regex: v.Regex, Passive: v.Passive})
		return []*treeset.Set{s}, nil

	case grammar.Nonterminal:
		key := v.Key()
		if cached, ok := a.firstCache[key]; ok {
			return cached, nil
		}
		for _, g := range a.guard {
			if g == key {
				return nil, grammar.NewGrammarError(
					"left recursion detected: %s", strings.Join(append(a.guard, key), " -> "))
			}
		}
		a.guard = append(a.guard, key)
		defer func() { a.guard = a.guard[:len(a.guard)-1] }()

		if v.Passive {
			npSets, err := a.firstOfSymbol(grammar.NP(v))
			if err != nil {
				return nil, err
			}
			out := make([]*treeset.Set, len(npSets))
			for i, s := range npSets {
				ns := newTermSet()
				for _, it := range s.Values() {
					lt := it.(lookaheadTerm)
					if lt.IsNull {
						ns.Add(lt)
					} else {
						ns.Add(lookaheadTerm{Regex: lt.Regex, Passive: true})
					}
				}
				out[i] = ns
			}
			a.firstCache[key] = out
			return out, nil
		}

		alt, ok := a.g.Lookup(v)
		if !ok {
			return nil, grammar.NewGrammarError("no such rule: %s", v.Name())
		}
		out := make([]*treeset.Set, len(alt.Productions))
		for i, prod := range alt.Productions {
			s, err := a.firstOfSequence(prod.Symbols())
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		a.firstCache[key] = out
		return out, nil

	default:
		return nil, grammar.NewInternalError("firstOfSymbol: unexpected symbol type %T", sym)
	}
}

// firstOfSequence computes the FIRST set of a symbol sequence: the union of
// FIRST(syms[0]), and if that's nullable, FIRST(syms[1]), and so on; nullable
// to the end means the whole sequence is nullable.
func (a *analysis) firstOfSequence(syms []grammar.Symbol) (*treeset.Set, error) {
	result := newTermSet()
	possibleEmpty := true
	for _, sym := range syms {
		sets, err := a.firstOfSymbol(sym)
		if err != nil {
			return nil, err
		}
		next := newTermSet()
		for _, s := range sets {
			unionInto(next, s)
		}
		unionInto(result, next)
		if !result.Contains(nullTerm) {
			possibleEmpty = false
			break
		}
		result.Remove(nullTerm)
	}
	if possibleEmpty {
		result.Add(nullTerm)
	}
	return result, nil
}

// computeFollow computes FOLLOW sets for every nonterminal, both passive and
// non-passive variants, by iterating to a fixed point over the total element
// count across all sets (mirroring original_source/bnf.py's own
// old_sum/new_sum convergence test rather than per-set dirty tracking).
func computeFollow(g *grammar.Grammar, a *analysis) (map[string]*treeset.Set, error) {
	heads := g.Nonterminals()
	var keys []grammar.Nonterminal
	for _, h := range heads {
		keys = append(keys, h)
		passive := h
		passive.Passive = true
		keys = append(keys, passive)
	}

	follow := map[string]*treeset.Set{}
	for _, k := range keys {
		follow[k.Key()] = newTermSet()
	}

	totalSize := func() int {
		n := 0
		for _, s := range follow {
			n += s.Size()
		}
		return n
	}

	old, cur := -1, 0
	for old != cur {
		old = cur
		for _, nt := range keys {
			fs := follow[nt.Key()]
			if nt.Key() == g.Start.Key() {
				fs.Add(nullTerm)
			}
			for _, head := range heads {
				alt, _ := g.Lookup(head)
				for _, prod := range alt.Productions {
					syms := prod.Symbols()
					for i, s := range syms {
						occ, ok := s.(grammar.Nonterminal)
						if !ok || occ.Key() != nt.Key() {
							continue
						}
						remFirst, err := a.firstOfSequence(syms[i+1:])
						if err != nil {
							return nil, err
						}
						for _, v := range remFirst.Values() {
							if lt := v.(lookaheadTerm); !lt.IsNull {
								fs.Add(lt)
							}
						}
						if remFirst.Contains(nullTerm) {
							unionInto(fs, follow[head.Key()])
						}
					}
				}
			}
		}
		cur = totalSize()
	}
	return follow, nil
}

// Follow returns nt's FOLLOW set as a list of regex/passive pairs, excluding
// the end-of-input marker.
func (t *Tables) Follow(nt grammar.Nonterminal) []grammar.Terminal {
	fs, ok := t.follow[nt.Key()]
	if !ok {
		return nil
	}
	var out []grammar.Terminal
	for _, v := range fs.Values() {
		lt := v.(lookaheadTerm)
		if lt.IsNull {
			continue
		}
		out = append(out, grammar.Terminal{Regex: lt.Regex, Passive: lt.Passive})
	}
	return out
}

// EndsInput reports whether the end-of-input marker is in nt's FOLLOW set.
func (t *Tables) EndsInput(nt grammar.Nonterminal) bool {
	fs, ok := t.follow[nt.Key()]
	return ok && fs.Contains(nullTerm)
}
