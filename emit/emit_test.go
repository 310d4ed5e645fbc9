package emit

import (
	"testing"

	"github.com/nuchi/sublime-from-cfg/analyze"
	"github.com/nuchi/sublime-from-cfg/grammar"
)

func nt(name string) grammar.Nonterminal     { return grammar.Nonterminal{Symbol: name} }
func term(re string) grammar.Terminal        { return grammar.Terminal{Regex: re} }
func passiveTerm(re string) grammar.Terminal { return grammar.Terminal{Regex: re, Passive: true} }

func concat(items ...grammar.Symbol) grammar.Concatenation {
	syms := make([]grammar.Expr, len(items))
	for i, s := range items {
		syms[i] = s
	}
	return grammar.Concatenation{Concats: syms}
}

func buildTables(t *testing.T, start grammar.Nonterminal, rules map[string]grammar.Alternation) (*grammar.Grammar, *analyze.Tables) {
	t.Helper()
	g := grammar.New(start)
	for symbol, alt := range rules {
		g.Set(grammar.Nonterminal{Symbol: symbol}, alt)
	}
	tables, err := analyze.Analyze(g)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return g, tables
}

// TestEmitClosure checks that every context name referenced anywhere in the
// emitted output (via push/set/branch/include/fail/with_prototype) is
// either a fixed utility name or itself a key of the output, for a small
// two-rule grammar with both a single-production rule and a multi-way
// branch.
func TestEmitClosure(t *testing.T) {
	start := nt("main")
	g, tables := buildTables(t, start, map[string]grammar.Alternation{
		"main": {Productions: []grammar.Concatenation{
			concat(term("a"), nt("rest")),
			concat(term("b")),
		}},
		"rest": {Productions: []grammar.Concatenation{concat(term("c"))}},
	})

	out, err := Emit(g, tables, grammar.SyntaxOptions{Name: "Test"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	known := map[string]bool{}
	for _, name := range out.Names() {
		known[name] = true
	}

	var walkCtx func(Context)
	checkName := func(name string) {
		if name == "" {
			return
		}
		if !known[name] {
			t.Errorf("referenced context %q is not defined", name)
		}
	}
	walkCtx = func(ctx Context) {
		for _, a := range ctx {
			for _, n := range a.Push {
				checkName(n)
			}
			for _, n := range a.Set {
				checkName(n)
			}
			for _, n := range a.Branch {
				checkName(n)
			}
			checkName(a.Include)
			checkName(a.Fail)
			if len(a.WithPrototype) > 0 {
				walkCtx(Context(a.WithPrototype))
			}
		}
	}
	for _, name := range out.Names() {
		ctx, _ := out.Context(name)
		walkCtx(ctx)
	}
}

// TestEmitDeterministicNaming checks that two Emit calls on the same input
// produce identical context name sets, in the same order.
func TestEmitDeterministicNaming(t *testing.T) {
	start := nt("main")
	rules := map[string]grammar.Alternation{
		"main": {Productions: []grammar.Concatenation{concat(term("a"), nt("rest"))}},
		"rest": {Productions: []grammar.Concatenation{concat(term("b"))}},
	}
	g1, tables1 := buildTables(t, start, rules)
	out1, err := Emit(g1, tables1, grammar.SyntaxOptions{Name: "Test"})
	if err != nil {
		t.Fatalf("Emit (1): %v", err)
	}

	g2, tables2 := buildTables(t, start, rules)
	out2, err := Emit(g2, tables2, grammar.SyntaxOptions{Name: "Test"})
	if err != nil {
		t.Fatalf("Emit (2): %v", err)
	}

	if len(out1.Names()) != len(out2.Names()) {
		t.Fatalf("name count differs: %d vs %d", len(out1.Names()), len(out2.Names()))
	}
	for i, name := range out1.Names() {
		if out2.Names()[i] != name {
			t.Fatalf("name order differs at %d: %q vs %q", i, name, out2.Names()[i])
		}
	}
}

// TestEmitProductionStackNonLeftmostPassive checks that a passive symbol
// contributes a full 4-element frame (entry, pop2!, gate, pop2!) to its
// production's stack even when it is not the production's leftmost symbol,
// matching the reference's _production_stack one-for-one. A passive symbol
// in leftmost position is not a sufficient check here: the production
// stack's single trailing "pop2!" drop (for whichever symbol sits last)
// would mask a missing pop2! if that symbol happened to be the passive one.
func TestEmitProductionStackNonLeftmostPassive(t *testing.T) {
	start := nt("main")
	g, tables := buildTables(t, start, map[string]grammar.Alternation{
		"main": {Productions: []grammar.Concatenation{
			concat(term("a"), passiveTerm("b"), term("c")),
		}},
	})

	out, err := Emit(g, tables, grammar.SyntaxOptions{Name: "Test"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	// Nonterminal.Name() special-cases the bare symbol "main" to "main/" so a
	// grammar's own entry rule can't collide with the emitter's fixed "main"
	// utility context. A rule with a single production sets that production's
	// stack directly from its entry context, so the stack is read from there.
	const entryName = "main/"
	ctx, ok := out.Context(entryName)
	if !ok {
		t.Fatalf("expected an entry context named %q, got names %v", entryName, out.Names())
	}
	if len(ctx) != 1 {
		t.Fatalf("expected the entry context to hold exactly one action, got %d", len(ctx))
	}
	stack := ctx[0].Set

	// a (2 frames) + b passive (4 frames: entry, pop2!, gate, pop2!) + c (2
	// frames), minus the single trailing pop2! the production's caller
	// already accounts for: 2 + 4 + 2 - 1 = 7.
	if len(stack) != 7 {
		t.Fatalf("expected a 7-element production stack, got %d: %v", len(stack), stack)
	}
	pop2Count := 0
	for _, s := range stack {
		if s == "pop2!" {
			pop2Count++
		}
	}
	if pop2Count != 3 {
		t.Fatalf("expected exactly 3 \"pop2!\" frames (b's entry, b's gate, c's entry), got %d: %v", pop2Count, stack)
	}
}
