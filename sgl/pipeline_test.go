package sgl_test

import (
	"strings"
	"testing"

	"github.com/nuchi/sublime-from-cfg/analyze"
	"github.com/nuchi/sublime-from-cfg/emit"
	"github.com/nuchi/sublime-from-cfg/normalize"
	"github.com/nuchi/sublime-from-cfg/serialize"
	"github.com/nuchi/sublime-from-cfg/sgl"
)

// compile drives the full Frontend->Normalizer->Analyzer->Emitter->Serializer
// pipeline on src, the same chain cmd/sbnfc wires together.
func compile(t *testing.T, filename, src string, globalArgs []string) (*emit.Output, []byte) {
	t.Helper()
	result, err := sgl.Parse(filename, src, globalArgs)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g, err := normalize.Normalize(result.Start, result.Rules)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	tables, err := analyze.Analyze(g)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	out, err := emit.Emit(g, tables, result.Opts)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	doc, err := serialize.Marshal(out, result.Opts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return out, doc
}

func allActions(out *emit.Output) []emit.Action {
	var all []emit.Action
	for _, name := range out.Names() {
		ctx, _ := out.Context(name)
		all = append(all, ctx...)
	}
	return all
}

func hasMatch(actions []emit.Action, want string) bool {
	for _, a := range actions {
		if a.Match != nil && *a.Match == want {
			return true
		}
	}
	return false
}

// TestPipelineS1SingleCharChoice is spec.md S1: main : 'a' | 'b' ; must
// leave both alternatives as directly matchable leaf terminals.
func TestPipelineS1SingleCharChoice(t *testing.T) {
	out, doc := compile(t, "s1.sbnf", "main : 'a' | 'b' ;\n", nil)
	actions := allActions(out)
	if !hasMatch(actions, "a") || !hasMatch(actions, "b") {
		t.Fatalf("expected leaf contexts matching both \"a\" and \"b\", got:\n%s", doc)
	}
}

// TestPipelineS2RepetitionAndOptional is spec.md S2: main : 'd'? 'x'*
// ('e' | 'f') ; exercises rewriteOptional and rewriteRepetition end to end.
func TestPipelineS2RepetitionAndOptional(t *testing.T) {
	out, doc := compile(t, "s2.sbnf", "main : 'd'? 'x'* ('e' | 'f') ;\n", nil)
	actions := allActions(out)
	for _, want := range []string{"d", "x", "e", "f"} {
		if !hasMatch(actions, want) {
			t.Fatalf("expected a leaf context matching %q, got:\n%s", want, doc)
		}
	}
}

// TestPipelineS3PassiveTerminal is spec.md S3: main : ~'a' | 'b' ; must
// produce a passive-preface gate context for the "a" arm.
func TestPipelineS3PassiveTerminal(t *testing.T) {
	out, doc := compile(t, "s3.sbnf", "main : ~'a' | 'b' ;\n", nil)
	sawGate := false
	for _, name := range out.Names() {
		if strings.HasSuffix(name, "@pp!") {
			sawGate = true
		}
	}
	if !sawGate {
		t.Fatalf("expected a passive preface gate context (\"...@pp!\"), got names %v\n%s", out.Names(), doc)
	}
	actions := allActions(out)
	if !hasMatch(actions, "b") {
		t.Fatalf("expected the non-passive \"b\" arm to remain a plain leaf match, got:\n%s", doc)
	}
}

// TestPipelineS3PassiveTerminalNonLeftmost exercises a passive symbol that
// is not the leftmost (nor sole) symbol of its production, the case the
// bare S3 grammar above can't catch since there the passive terminal is
// both sole and leftmost.
func TestPipelineS3PassiveTerminalNonLeftmost(t *testing.T) {
	src := "" +
		"main : foo ~bar baz ;\n" +
		"foo : 'a' ;\n" +
		"bar : 'b' ;\n" +
		"baz : 'c' ;\n"
	out, doc := compile(t, "s3b.sbnf", src, nil)
	actions := allActions(out)
	for _, want := range []string{"a", "b", "c"} {
		if !hasMatch(actions, want) {
			t.Fatalf("expected a leaf context matching %q, got:\n%s", want, doc)
		}
	}
	sawGate := false
	for _, name := range out.Names() {
		if strings.HasSuffix(name, "@pp!") {
			sawGate = true
		}
	}
	if !sawGate {
		t.Fatalf("expected a passive preface gate for the non-leftmost \"bar\" symbol, got names %v\n%s", out.Names(), doc)
	}
}

// TestPipelineS4NestedAlternationMetaScope is spec.md S4: two meta-scoped
// rules dispatched by second-character lookahead on a shared prefix.
func TestPipelineS4NestedAlternationMetaScope(t *testing.T) {
	src := "" +
		"main : ca | cb ;\n" +
		"ca{variable.function} : 'c' 'a' ;\n" +
		"cb{variable.parameter} : 'c' 'b' ;\n"
	out, doc := compile(t, "s4.sbnf", src, nil)
	var sawFunction, sawParameter bool
	for _, a := range allActions(out) {
		if strings.Contains(a.MetaScope, "variable.function") {
			sawFunction = true
		}
		if strings.Contains(a.MetaScope, "variable.parameter") {
			sawParameter = true
		}
	}
	if !sawFunction || !sawParameter {
		t.Fatalf("expected both meta-scope declarations to appear, got:\n%s", doc)
	}
}

// TestPipelineS5PrototypeSplicing is spec.md S5: a grammar-level prototype
// rule is spliced into ordinary contexts via meta_include_prototype, but a
// rule marked include-prototype: false suppresses it.
func TestPipelineS5PrototypeSplicing(t *testing.T) {
	src := "" +
		"main : quiet ;\n" +
		"quiet{include-prototype: false} : 'y' ;\n" +
		"prototype : '#' ;\n"
	out, doc := compile(t, "s5.sbnf", src, nil)
	sawSuppressed := false
	for _, a := range allActions(out) {
		if a.MetaIncludePrototype != nil && !*a.MetaIncludePrototype {
			sawSuppressed = true
		}
	}
	if !sawSuppressed {
		t.Fatalf("expected at least one meta_include_prototype: false action for the suppressed rule, got:\n%s", doc)
	}
	if !strings.Contains(string(doc), "prototype") {
		t.Fatalf("expected the prototype rule's own context to be emitted, got:\n%s", doc)
	}
}

// TestPipelineS6BacktrackingAmbiguousFirst is spec.md S6: S : 'a' 'b' |
// 'a' 'c' ; shares a FIRST('a') between two productions, forcing a
// branch_point/branch pair rather than a single deterministic dispatch.
func TestPipelineS6BacktrackingAmbiguousFirst(t *testing.T) {
	out, doc := compile(t, "s6.sbnf", "main : 'a' 'b' | 'a' 'c' ;\n", nil)
	sawBranchPoint := false
	for _, a := range allActions(out) {
		if a.BranchPoint != "" && len(a.Branch) > 0 {
			sawBranchPoint = true
		}
	}
	if !sawBranchPoint {
		t.Fatalf("expected a branch_point/branch pair for the ambiguous FIRST('a') choice, got:\n%s", doc)
	}
}
