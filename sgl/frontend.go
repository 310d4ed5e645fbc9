package sgl

import (
	"path/filepath"
	"strings"

	"github.com/nuchi/sublime-from-cfg/grammar"
	"github.com/nuchi/sublime-from-cfg/normalize"
	"github.com/nuchi/sublime-from-cfg/token"
)

// recognized upper-case variable names harvested into grammar.SyntaxOptions,
// per SPEC_FULL.md §4.4 and original_source/sublime_from_cfg/types.py's
// SublimeSyntaxOptions dataclass.
const (
	optName         = "NAME"
	optExtensions   = "EXTENSIONS"
	optFirstLine    = "FIRST_LINE"
	optScope        = "SCOPE"
	optScopePostfix = "SCOPE_POSTFIX"
	optHidden       = "HIDDEN"
)

// Result is everything the SGL frontend hands to the core: the instantiated
// rules (ready for normalize.Normalize), the start symbol, and the harvested
// syntax options.
type Result struct {
	Rules []normalize.Rule
	Start grammar.Nonterminal
	Opts  grammar.SyntaxOptions
}

// Parse lexes and parses an SGL source file, binds globalArgs positionally
// to its leading "[NAME1, NAME2, ...]" parameter declaration (if any), and
// instantiates every rule reachable from "main". filename is used only to
// derive a default display Name when the source has no NAME variable.
func Parse(filename, src string, globalArgs []string) (*Result, error) {
	toks, err := Scan(src)
	if err != nil {
		return nil, err
	}
	p := newParser(toks)
	// The leading global parameter declaration is bound before the rest of
	// the program is parsed, so variable definitions can refer to the bound
	// values, and a variable of the same name replaces the bound value.
	if p.peekKind() == token.LBrack {
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		p.globalParamNames = names
	}
	if err := p.bindGlobalArgs(globalArgs); err != nil {
		return nil, err
	}
	if err := p.parseProgram(); err != nil {
		return nil, err
	}

	start := grammar.Nonterminal{Symbol: "main"}
	if _, err := p.lookupTemplate(start); err != nil {
		return nil, err
	}
	rules, err := p.expand(start)
	if err != nil {
		return nil, err
	}

	if _, err := p.lookupTemplate(grammar.Nonterminal{Symbol: "prototype"}); err == nil {
		protoRules, err := p.expand(grammar.Nonterminal{Symbol: "prototype"})
		if err != nil {
			return nil, err
		}
		rules = append(rules, protoRules...)
	}

	return &Result{
		Rules: rules,
		Start: start,
		Opts:  p.syntaxOptions(filename),
	}, nil
}

// bindGlobalArgs binds globalArgs positionally to the names declared in the
// source's leading "[NAME1, NAME2]" bracket (if any), storing them in
// strCtx alongside ordinary variables so both U_IDENT variable references
// and NAME/EXTENSIONS/etc. harvesting see them uniformly.
func (p *parser) bindGlobalArgs(globalArgs []string) error {
	if len(p.globalParamNames) != len(globalArgs) {
		return grammar.NewGrammarError(
			"grammar declares %d global parameter(s), %d given", len(p.globalParamNames), len(globalArgs))
	}
	for i, name := range p.globalParamNames {
		p.strCtx[name] = globalArgs[i]
	}
	return nil
}

// syntaxOptions harvests the recognized upper-case variables directly out of
// the resolved variable table, defaulting Name to filename's basename with
// its .sbnf suffix stripped when NAME was never set.
func (p *parser) syntaxOptions(filename string) grammar.SyntaxOptions {
	opts := grammar.SyntaxOptions{
		Name:       defaultName(filename),
		Extensions: p.strCtx[optExtensions],
		FirstLine:  p.strCtx[optFirstLine],
		Scope:      p.strCtx[optScope],
		Hidden:     p.strCtx[optHidden],
	}
	if v, ok := p.strCtx[optName]; ok {
		opts.Name = v
	}
	if v, ok := p.strCtx[optScopePostfix]; ok {
		opts.ScopePostfix = &v
	}
	return opts
}

func defaultName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
