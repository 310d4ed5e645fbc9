package normalize

import (
	"testing"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

func nt(name string) grammar.Nonterminal { return grammar.Nonterminal{Symbol: name} }
func term(re string) grammar.Terminal    { return grammar.Terminal{Regex: re} }

func concat(items ...grammar.Expr) grammar.Concatenation {
	return grammar.Concatenation{Concats: items}
}

func alt(prods ...grammar.Concatenation) grammar.Alternation {
	return grammar.Alternation{Productions: prods}
}

// TestNormalizePureBNF checks that a grammar already in pure BNF survives
// normalization unchanged in shape (one production, same two symbols).
func TestNormalizePureBNF(t *testing.T) {
	start := nt("main")
	rules := []Rule{
		{Head: start, Alt: alt(concat(term("a"), nt("b")))},
		{Head: nt("b"), Alt: alt(concat(term("c")))},
	}
	g, err := Normalize(start, rules)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	mainAlt, ok := g.Lookup(start)
	if !ok {
		t.Fatalf("missing main rule")
	}
	if len(mainAlt.Productions) != 1 {
		t.Fatalf("expected 1 production, got %d", len(mainAlt.Productions))
	}
	syms := mainAlt.Productions[0].Symbols()
	if len(syms) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(syms))
	}
}

// TestNormalizeEliminatesStar checks that a Repetition is rewritten away
// into a fresh recursive nonterminal, leaving only Symbols in main's body.
func TestNormalizeEliminatesStar(t *testing.T) {
	start := nt("main")
	rules := []Rule{
		{Head: start, Alt: alt(concat(grammar.Repetition{Sub: term("a")}))},
	}
	g, err := Normalize(start, rules)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for _, head := range g.Nonterminals() {
		a, _ := g.Lookup(head)
		for _, prod := range a.Productions {
			for _, e := range prod.Concats {
				if _, ok := e.(grammar.Symbol); !ok {
					t.Fatalf("rule %s retained a non-Symbol expr %T after normalization", head.Name(), e)
				}
			}
		}
	}
}

// TestNormalizeEliminatesOptional checks that an OptionalExpr is rewritten
// into a fresh nonterminal with an epsilon alternative.
func TestNormalizeEliminatesOptional(t *testing.T) {
	start := nt("main")
	rules := []Rule{
		{Head: start, Alt: alt(concat(grammar.OptionalExpr{Sub: term("a")}, term("b")))},
	}
	g, err := Normalize(start, rules)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	mainAlt, _ := g.Lookup(start)
	syms := mainAlt.Productions[0].Symbols()
	if len(syms) != 2 {
		t.Fatalf("expected 2 symbols after optional rewrite, got %d", len(syms))
	}
	optNt, ok := syms[0].(grammar.Nonterminal)
	if !ok {
		t.Fatalf("expected first symbol to be the fresh optional nonterminal, got %T", syms[0])
	}
	optAlt, ok := g.Lookup(optNt)
	if !ok {
		t.Fatalf("fresh optional rule %s not found", optNt.Name())
	}
	if len(optAlt.Productions) != 2 {
		t.Fatalf("expected 2 productions (epsilon + sub) for optional rule, got %d", len(optAlt.Productions))
	}
}

// TestNormalizeIdempotent checks that normalizing an already-normalized
// grammar a second time produces the same set of rule keys.
func TestNormalizeIdempotent(t *testing.T) {
	start := nt("main")
	rules := []Rule{
		{Head: start, Alt: alt(concat(grammar.Repetition{Sub: term("a")}, term("b")))},
	}
	g1, err := Normalize(start, rules)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	var again []Rule
	for _, head := range g1.Nonterminals() {
		a, _ := g1.Lookup(head)
		again = append(again, Rule{Head: head, Alt: a})
	}
	g2, err := Normalize(start, again)
	if err != nil {
		t.Fatalf("second Normalize: %v", err)
	}
	if len(g1.Nonterminals()) != len(g2.Nonterminals()) {
		t.Fatalf("idempotence broken: %d rules vs %d rules", len(g1.Nonterminals()), len(g2.Nonterminals()))
	}
}
