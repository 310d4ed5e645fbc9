package normalize

import "github.com/nuchi/sublime-from-cfg/grammar"

// checkInvariants verifies that every production in rules contains only
// Terminals and Nonterminals (no Repetition, OptionalExpr, PassiveExpr,
// nested Alternation, or SkipMarker survived the five rewrite passes).
// Anything else is a programming error in normalize, not a problem with the
// input grammar: the five passes above are supposed to be exhaustive.
func checkInvariants(rules map[string]grammar.RuleEntry) error {
	for _, entry := range rules {
		for _, prod := range entry.Alt.Productions {
			for _, item := range prod.Concats {
				switch item.(type) {
				case grammar.Terminal, grammar.Nonterminal:
					// fine
				default:
					return badType("checkInvariants", item)
				}
			}
		}
	}
	return nil
}
