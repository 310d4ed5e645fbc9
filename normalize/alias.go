package normalize

import "github.com/nuchi/sublime-from-cfg/grammar"

// collapseAliases rewrites identity wrappers introduced by alternation
// rewriting: if a rule X -> Y has a single production consisting solely of a
// non-passive nonterminal Y, and X carries no options string at all, then Y
// is renamed to X throughout the rule set. A rule whose options hold only
// key:value entries (such as include-prototype) is not collapsed either. This collapses e.g. the fresh
// nonterminal a rewriteAlternation call introduces for an alternation that
// turns out to have had only one arm worth keeping.
func collapseAliases(rules map[string]grammar.RuleEntry) {
	toChange := map[string]grammar.Nonterminal{} // y.Key() -> x
	for _, entry := range rules {
		alt := entry.Alt
		if alt.Options != "" || len(alt.Productions) != 1 {
			continue
		}
		concats := alt.Productions[0].Concats
		if len(concats) != 1 {
			continue
		}
		y, ok := concats[0].(grammar.Nonterminal)
		if !ok || y.Passive {
			continue
		}
		toChange[y.Key()] = entry.Head
	}

	for yKey, x := range toChange {
		yEntry, ok := rules[yKey]
		if !ok {
			continue
		}
		rules[x.Key()] = grammar.RuleEntry{Head: x, Alt: yEntry.Alt}
		delete(rules, yKey)
	}

	for key, entry := range rules {
		changed := false
		for pi, prod := range entry.Alt.Productions {
			for ci, item := range prod.Concats {
				nt, ok := item.(grammar.Nonterminal)
				if !ok {
					continue
				}
				if x, found := toChange[nt.Key()]; found {
					prod.Concats[ci] = x
					changed = true
				}
			}
			entry.Alt.Productions[pi] = prod
		}
		if changed {
			rules[key] = entry
		}
	}
}
