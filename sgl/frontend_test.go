package sgl

import (
	"testing"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

// TestParseGlobalParamsAndParameterizedRule exercises global-parameter
// binding, a variable that shadows one of those parameters, and a
// parameterized rule instantiated with the other parameter — the same
// shape as original_source/test_parser.py's sample grammar.
func TestParseGlobalParamsAndParameterizedRule(t *testing.T) {
	src := "" +
		"[A, B]\n" +
		"\n" +
		"A = `:::`\n" +
		"\n" +
		"main : A b[B] ;\n" +
		"\n" +
		"b[X] : '#[X]' ;\n"

	result, err := Parse("test.sbnf", src, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.Start.Symbol != "main" {
		t.Fatalf("expected start symbol main, got %s", result.Start.Symbol)
	}

	var mainRule *grammar.Nonterminal
	var mainAlt grammar.Alternation
	var bInstance *grammar.Nonterminal
	var bAlt grammar.Alternation
	for _, r := range result.Rules {
		r := r
		if r.Head.Symbol == "main" {
			mainRule, mainAlt = &r.Head, r.Alt
		}
		if r.Head.Symbol == "b" {
			bInstance, bAlt = &r.Head, r.Alt
		}
	}
	if mainRule == nil {
		t.Fatalf("no main rule instantiated")
	}
	if bInstance == nil {
		t.Fatalf("no b[...] rule instantiated")
	}

	if len(mainAlt.Productions) != 1 || len(mainAlt.Productions[0].Concats) != 2 {
		t.Fatalf("expected main to have 1 production of 2 symbols, got %+v", mainAlt)
	}
	first := mainAlt.Productions[0].Concats[0].(grammar.Terminal)
	// A was declared as a global parameter but then redefined as a plain
	// variable ("A = `:::`"); the variable definition wins, so main's use
	// of A resolves to the literal pattern, not the bound CLI argument.
	if first.Regex != ":::" {
		t.Fatalf("expected main's first symbol to be literal ':::' , got %q", first.Regex)
	}

	second := mainAlt.Productions[0].Concats[1].(grammar.Nonterminal)
	if second.Symbol != "b" || len(second.Args) != 1 {
		t.Fatalf("expected main's second symbol to be b[<one arg>], got %+v", second)
	}
	arg := second.Args[0].(grammar.Terminal)
	if arg.Regex != "beta" {
		t.Fatalf("expected b's argument to resolve to the global parameter B = \"beta\", got %q", arg.Regex)
	}

	if len(bAlt.Productions) != 1 || len(bAlt.Productions[0].Concats) != 1 {
		t.Fatalf("expected b[beta] to have 1 production of 1 symbol, got %+v", bAlt)
	}
	bTerm := bAlt.Productions[0].Concats[0].(grammar.Terminal)
	if bTerm.Regex != "beta" {
		t.Fatalf("expected b[X]'s body '#[X]' to interpolate to \"beta\", got %q", bTerm.Regex)
	}
}

// TestParseSyntaxOptionsHarvested checks that the recognized upper-case
// variables populate grammar.SyntaxOptions, and that NAME defaults from the
// filename when unset.
func TestParseSyntaxOptionsHarvested(t *testing.T) {
	src := "" +
		"NAME = `Widget`\n" +
		"EXTENSIONS = `widget wgt`\n" +
		"SCOPE = 'source.widget'\n" +
		"\n" +
		"main : `x` ;\n"

	result, err := Parse("widget.sbnf", src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.Opts.Name != "Widget" {
		t.Fatalf("expected Name \"Widget\", got %q", result.Opts.Name)
	}
	if result.Opts.Scope != "source.widget" {
		t.Fatalf("expected Scope \"source.widget\", got %q", result.Opts.Scope)
	}
	exts := result.Opts.ExtensionList()
	if len(exts) != 2 || exts[0] != "widget" || exts[1] != "wgt" {
		t.Fatalf("expected extensions [widget wgt], got %v", exts)
	}
}

func TestParseDefaultNameFromFilename(t *testing.T) {
	result, err := Parse("my-lang.sbnf", "main : `x` ;\n", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.Opts.Name != "my-lang" {
		t.Fatalf("expected default name \"my-lang\", got %q", result.Opts.Name)
	}
}

// TestParseAlternationStarQuestionPassive exercises the EBNF sugar forms in
// one production.
func TestParseAlternationStarQuestionPassive(t *testing.T) {
	src := "main : (`a` | `b`)* ~`c`? ;\n"
	result, err := Parse("t.sbnf", src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Rules) == 0 {
		t.Fatalf("expected at least one rule")
	}
}

// TestParseUndefinedRuleReference checks that a reference to a rule that
// was never declared is reported as a GrammarError during expansion.
func TestParseUndefinedRuleReference(t *testing.T) {
	src := "main : missing ;\n"
	if _, err := Parse("t.sbnf", src, nil); err == nil {
		t.Fatalf("expected an error for a reference to an undefined rule")
	}
}

// TestParseArityMismatch checks that calling a parameterized rule with the
// wrong number of arguments is reported.
func TestParseArityMismatch(t *testing.T) {
	src := "" +
		"main : b[`x`, `y`] ;\n" +
		"b[X] : X ;\n"
	if _, err := Parse("t.sbnf", src, nil); err == nil {
		t.Fatalf("expected an arity-mismatch error")
	}
}

// TestParseEmbedDirective checks that a %embed directive attaches an
// EmbedSpec to the preceding terminal.
func TestParseEmbedDirective(t *testing.T) {
	src := "main : `start` %embed[`end`] ;\n"
	result, err := Parse("t.sbnf", src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var mainAlt grammar.Alternation
	for _, r := range result.Rules {
		if r.Head.Symbol == "main" {
			mainAlt = r.Alt
		}
	}
	term := mainAlt.Productions[0].Concats[0].(grammar.Terminal)
	if term.Embed == nil {
		t.Fatalf("expected an EmbedSpec on main's terminal")
	}
	if term.Embed.Escape.Regex != "end" {
		t.Fatalf("expected embed escape regex \"end\", got %q", term.Embed.Escape.Regex)
	}
}

// TestParseIncludeDirective checks that a %include directive attaches an
// IncludeSpec referencing the named rule.
func TestParseIncludeDirective(t *testing.T) {
	src := "" +
		"main : `start` %include[other] ;\n" +
		"other : `x` ;\n"
	result, err := Parse("t.sbnf", src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var mainAlt grammar.Alternation
	for _, r := range result.Rules {
		if r.Head.Symbol == "main" {
			mainAlt = r.Alt
		}
	}
	term := mainAlt.Productions[0].Concats[0].(grammar.Terminal)
	if term.Include == nil {
		t.Fatalf("expected an IncludeSpec on main's terminal")
	}
	if term.Include.Target.Symbol != "other" {
		t.Fatalf("expected include target \"other\", got %q", term.Include.Target.Symbol)
	}
}
