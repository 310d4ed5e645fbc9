package sgl

import (
	"github.com/nuchi/sublime-from-cfg/grammar"
	"github.com/nuchi/sublime-from-cfg/normalize"
)

// expand turns the set of parsed rule templates into a flat list of
// (head, body) rules, instantiating each parameterized rule only for the
// (name, arity, argument) combinations actually reachable from start. This
// mirrors the worklist in the original's make_actualized_rules: a to-do set
// seeded with the start symbol, drained by instantiating one rule at a time
// and adding every Nonterminal its body references, until nothing new turns
// up. The original mutates its to-do set from inside the substitution
// closures as they run; here the substitution closures are pure (they just
// build a grammar.Alternation) and a separate tree-walk
// (collectNonterminals) finds the references afterward, which is easier to
// follow and needs no side-effecting callback threaded through every
// builder.
func (p *parser) expand(start grammar.Nonterminal) ([]normalize.Rule, error) {
	done := map[string]bool{}
	queue := []grammar.Nonterminal{start}
	var rules []normalize.Rule

	for len(queue) > 0 {
		nt := queue[0]
		queue = queue[1:]
		key := nt.Key()
		if done[key] {
			continue
		}
		done[key] = true

		tmpl, err := p.lookupTemplate(nt)
		if err != nil {
			return nil, err
		}
		if len(tmpl.params) != len(nt.Args) {
			return nil, grammar.NewGrammarError(
				"rule %q called with %d argument(s), declared with %d", nt.Symbol, len(nt.Args), len(tmpl.params))
		}
		ctx := make(map[string]grammar.Symbol, len(tmpl.params))
		for i, name := range tmpl.params {
			ctx[name] = nt.Args[i]
		}
		alt, err := tmpl.build(ctx)
		if err != nil {
			return nil, err
		}

		// The head carries whatever Args the caller supplied: Nonterminal
		// identity (Key/Name) depends on Args for a parameterized rule, so
		// stripping them here would register the instantiation under the
		// wrong identity and the normalizer's own Nonterminal references
		// into it would no longer resolve.
		rules = append(rules, normalize.Rule{Head: nt, Alt: alt})

		for _, ref := range collectNonterminals(alt) {
			if !done[ref.Key()] {
				queue = append(queue, ref)
			}
		}
	}

	return rules, nil
}

func (p *parser) lookupTemplate(nt grammar.Nonterminal) (*ruleTemplate, error) {
	byArity, ok := p.templates[nt.Symbol]
	if !ok {
		return nil, grammar.NewGrammarError("no such rule: %s", nt.Symbol)
	}
	tmpl, ok := byArity[len(nt.Args)]
	if !ok {
		return nil, grammar.NewGrammarError("no overload of rule %q takes %d argument(s)", nt.Symbol, len(nt.Args))
	}
	return tmpl, nil
}

// collectNonterminals walks an already-built grammar.Alternation and returns
// every distinct Nonterminal it references, in first-seen order.
func collectNonterminals(alt grammar.Alternation) []grammar.Nonterminal {
	var out []grammar.Nonterminal
	seen := map[string]bool{}
	add := func(nt grammar.Nonterminal) {
		if !seen[nt.Key()] {
			seen[nt.Key()] = true
			out = append(out, nt)
		}
	}
	var walkExpr func(e grammar.Expr)
	walkExpr = func(e grammar.Expr) {
		switch v := e.(type) {
		case grammar.Nonterminal:
			add(v)
		case grammar.Terminal:
			if v.Include != nil {
				add(v.Include.Target)
			}
		case grammar.Repetition:
			walkExpr(v.Sub)
		case grammar.OptionalExpr:
			walkExpr(v.Sub)
		case grammar.PassiveExpr:
			walkExpr(v.Sub)
		case grammar.Concatenation:
			for _, c := range v.Concats {
				walkExpr(c)
			}
		case grammar.Alternation:
			for _, prod := range v.Productions {
				walkExpr(prod)
			}
		}
	}
	for _, prod := range alt.Productions {
		walkExpr(prod)
	}
	return out
}
