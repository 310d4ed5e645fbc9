package grammar

// RuleEntry pairs a rule's head nonterminal with its body. The head is
// always non-passive; the passive variant of the same rule shares this body.
type RuleEntry struct {
	Head Nonterminal
	Alt  Alternation
}

// Grammar is a mapping from Nonterminal (by key) to Alternation, plus a
// distinguished start symbol. It flows immutably from the SGL frontend
// through the normalizer and analyzer.
type Grammar struct {
	Rules map[string]RuleEntry // keyed by Nonterminal.Key()
	Start Nonterminal
}

// New returns an empty Grammar with the given start symbol.
func New(start Nonterminal) *Grammar {
	return &Grammar{Rules: map[string]RuleEntry{}, Start: start}
}

// Lookup returns the Alternation for nt (its non-passive key is used
// regardless of nt.Passive, since passive and non-passive variants of a rule
// share one body), and whether it was found.
func (g *Grammar) Lookup(nt Nonterminal) (Alternation, bool) {
	nt.Passive = false
	e, ok := g.Rules[nt.Key()]
	return e.Alt, ok
}

// Set installs or replaces the rule for nt.Head (always stored under its
// non-passive key).
func (g *Grammar) Set(head Nonterminal, alt Alternation) {
	head.Passive = false
	g.Rules[head.Key()] = RuleEntry{Head: head, Alt: alt}
}

// Delete removes the rule for nt, if present.
func (g *Grammar) Delete(nt Nonterminal) {
	nt.Passive = false
	delete(g.Rules, nt.Key())
}

// Has reports whether nt (any passivity) names a rule in g.
func (g *Grammar) Has(nt Nonterminal) bool {
	nt.Passive = false
	_, ok := g.Rules[nt.Key()]
	return ok
}

// Nonterminals returns every rule head, in a deterministic order (sorted by
// Key), for callers that need to range over the grammar reproducibly.
func (g *Grammar) Nonterminals() []Nonterminal {
	out := make([]Nonterminal, 0, len(g.Rules))
	for _, e := range g.Rules {
		out = append(out, e.Head)
	}
	sortNonterminals(out)
	return out
}

func sortNonterminals(nts []Nonterminal) {
	// insertion sort: grammars are small (tens to low hundreds of rules);
	// this is here only to make iteration order deterministic, not for
	// asymptotic performance.
	for i := 1; i < len(nts); i++ {
		for j := i; j > 0 && nts[j-1].Key() > nts[j].Key(); j-- {
			nts[j-1], nts[j] = nts[j], nts[j-1]
		}
	}
}
