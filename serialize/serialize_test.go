package serialize

import (
	"strings"
	"testing"

	"github.com/nuchi/sublime-from-cfg/analyze"
	"github.com/nuchi/sublime-from-cfg/emit"
	"github.com/nuchi/sublime-from-cfg/grammar"
)

func nt(name string) grammar.Nonterminal { return grammar.Nonterminal{Symbol: name} }
func term(re string) grammar.Terminal    { return grammar.Terminal{Regex: re} }

func concat(items ...grammar.Symbol) grammar.Concatenation {
	syms := make([]grammar.Expr, len(items))
	for i, s := range items {
		syms[i] = s
	}
	return grammar.Concatenation{Concats: syms}
}

// oneRuleOutput builds the emitted Output for the smallest possible
// grammar: a single rule with a single terminal production. This is
// enough to exercise both ends of the L()-style single/multi collapse: the
// rule's own entry context has a one-element "set" (just the terminal's own
// context name), while the emitter's fixed "main" utility context always
// pushes three names (fail1!, fail2!, <rule entry>).
func oneRuleOutput(t *testing.T) *emit.Output {
	t.Helper()
	start := nt("main")
	g := grammar.New(start)
	g.Set(start, grammar.Alternation{Productions: []grammar.Concatenation{concat(term("a"))}})
	tables, err := analyze.Analyze(g)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	out, err := emit.Emit(g, tables, grammar.SyntaxOptions{Name: "T"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	return out
}

// TestMarshalSingleEntryCollapses checks that a one-element set/push list
// renders as a bare scalar, not a one-item sequence, matching the
// original's L() helper only ever producing a visibly flow-style sequence
// for more than one entry.
func TestMarshalSingleEntryCollapses(t *testing.T) {
	out := oneRuleOutput(t)
	doc, err := Marshal(out, grammar.SyntaxOptions{Name: "T"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(doc)
	// The fixed reset1!/reset2! contexts set several names, so only the
	// rule entry's one-element set (naming the terminal's context) is checked.
	single := term("a").Name()
	found := false
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "set:") || !strings.Contains(trimmed, single) {
			continue
		}
		found = true
		if strings.Contains(trimmed, "[") {
			t.Fatalf("expected a bare-scalar single-entry set, got line %q", trimmed)
		}
	}
	if !found {
		t.Fatalf("expected at least one \"set:\" line, got:\n%s", s)
	}
}

// TestMarshalMultiEntryFlowSequence checks that the fixed "main" utility
// context's three-element push list renders as an inline flow sequence.
func TestMarshalMultiEntryFlowSequence(t *testing.T) {
	out := oneRuleOutput(t)
	doc, err := Marshal(out, grammar.SyntaxOptions{Name: "T"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(doc)
	if !strings.Contains(s, "push: [fail1!, fail2!,") {
		t.Fatalf("expected an inline flow sequence for push, got:\n%s", s)
	}
}

// TestMarshalHeaderFields checks that name/scope/file_extensions are
// written from SyntaxOptions.
func TestMarshalHeaderFields(t *testing.T) {
	out := oneRuleOutput(t)
	opts := grammar.SyntaxOptions{Name: "Widget", Extensions: "widget wgt"}
	doc, err := Marshal(out, opts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(doc)
	if !strings.Contains(s, "name: Widget") {
		t.Fatalf("expected name field, got:\n%s", s)
	}
	if !strings.Contains(s, "scope: source.widget") {
		t.Fatalf("expected default scope field, got:\n%s", s)
	}
	if !strings.Contains(s, "file_extensions: [widget, wgt]") {
		t.Fatalf("expected file_extensions flow sequence, got:\n%s", s)
	}
}

// TestMarshalContextsPresent checks that every emitted context name appears
// as a key under "contexts:".
func TestMarshalContextsPresent(t *testing.T) {
	out := oneRuleOutput(t)
	doc, err := Marshal(out, grammar.SyntaxOptions{Name: "T"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(doc)
	for _, name := range out.Names() {
		if !strings.Contains(s, name) {
			t.Fatalf("expected context %q to appear in output, got:\n%s", name, s)
		}
	}
}
