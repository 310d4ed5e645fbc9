/*
Package normalize eliminates EBNF sugar from a raw grammar (Repetition,
OptionalExpr, Passive marks, nested Alternation), leaving pure BNF: every
production contains only Terminals and Nonterminals.

Five ordered passes run over a worklist, exactly as spec.md §4.1 describes:
expandPassives, rewriteOptional, rewriteRepetition, rewriteAlternation,
collapsePassives. Each pass may enqueue fresh (nonterminal, alternation)
pairs, which then run through all five passes in turn when popped. Adapted in
shape from the worklist/memo pattern the teacher uses for its own CFSM
construction (gorgo/lr/tables.go), grounded in substance on
original_source/transform_grammar.py.
*/
package normalize

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

// tracer traces with key 'sbnf.normalize'.
func tracer() tracing.Trace {
	return tracing.Select("sbnf.normalize")
}

// Rule is one (head, body) pair as handed to Normalize by the SGL frontend.
type Rule struct {
	Head grammar.Nonterminal
	Alt  grammar.Alternation
}

type pending struct {
	nt  grammar.Nonterminal
	alt grammar.Alternation
}

type passFunc func(nt grammar.Nonterminal, alt grammar.Alternation, todo *[]pending) (grammar.Alternation, error)

var passes = []passFunc{
	expandPassives,
	rewriteOptional,
	rewriteRepetition,
	rewriteAlternation,
	collapsePassives,
}

// Normalize applies the five rewrite passes to every rule reachable from
// initial, then collapses identity-wrapper aliases and checks the
// post-normalization invariants. The returned Grammar's start symbol is
// start.
func Normalize(start grammar.Nonterminal, initial []Rule) (*grammar.Grammar, error) {
	todo := make([]pending, 0, len(initial))
	for _, r := range initial {
		todo = append(todo, pending{r.Head, r.Alt})
	}

	generated := map[string]grammar.RuleEntry{}
	for len(todo) > 0 {
		cur := todo[0]
		todo = todo[1:]
		alt := cur.alt
		for _, pass := range passes {
			var err error
			alt, err = pass(cur.nt, alt, &todo)
			if err != nil {
				return nil, err
			}
		}
		tracer().Debugf("normalized rule %s -> %d production(s)", cur.nt.Name(), len(alt.Productions))
		generated[cur.nt.Key()] = grammar.RuleEntry{Head: cur.nt, Alt: alt}
	}

	collapseAliases(generated)

	if err := checkInvariants(generated); err != nil {
		return nil, err
	}

	g := &grammar.Grammar{Rules: generated, Start: start}
	return g, nil
}

// badType reports an expression shape that survived normalization without
// matching any of the five sugar forms or the two base symbol kinds — a
// programming error in the frontend or an earlier pass, per spec.md §4.1's
// "Failure modes".
func badType(where string, e grammar.Expr) error {
	return grammar.NewInternalError("%s: unrecognized expression shape %T", where, e)
}
