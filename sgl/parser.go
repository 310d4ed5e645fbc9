package sgl

import (
	"fmt"
	"regexp"

	"github.com/nuchi/sublime-from-cfg/grammar"
	"github.com/nuchi/sublime-from-cfg/token"
)

// exprBuilder defers evaluation of one production element until a rule is
// actually instantiated with a concrete argument binding, mirroring the
// closures original_source/parse_sbnf.py builds during parsing (each grammar
// production there is a Python lambda closed over **context; here it is a Go
// func closed over a ctx map populated at instantiation time).
type exprBuilder func(ctx map[string]grammar.Symbol) (grammar.Expr, error)

// ruleTemplate is one parsed, not-yet-instantiated rule: its formal
// parameter names (bound by position to a Nonterminal's Args at
// instantiation, see expand.go) and a builder producing the rule's
// Alternation once those names are bound.
//
// Only named-parameter substitution by (name, arity) is supported: unlike
// find_matching_rule in the original, a call is dispatched purely on the
// callee's name and argument count, never on the literal value of a
// terminal-typed parameter. Two same-named rules may still be declared with
// different arities (simple overloading), just not with the same arity and
// different literal parameter patterns.
type ruleTemplate struct {
	params []string
	build  func(ctx map[string]grammar.Symbol) (grammar.Alternation, error)
}

type parser struct {
	toks             []token.Token
	pos              int
	strCtx           map[string]string // resolved top-level variables and bound global parameters
	globalParamNames []string
	templates        map[string]map[int]*ruleTemplate // rule name -> arity -> template
	prototypeSeen    bool
}

func newParser(toks []token.Token) *parser {
	return &parser{toks: toks, strCtx: map[string]string{}, templates: map[string]map[int]*ruleTemplate{}}
}

func (p *parser) peek() token.Token     { return p.toks[p.pos] }
func (p *parser) peekKind() token.Kind  { return p.toks[p.pos].Kind }

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k token.Kind) (token.Token, error) {
	if p.peekKind() != k {
		return token.Token{}, &grammar.SyntaxError{
			Line: p.peek().Line,
			Msg:  fmt.Sprintf("expected %s, got %s %q", k, p.peekKind(), p.peek().Lexeme),
		}
	}
	return p.advance(), nil
}

// parseProgram parses the whole token stream: an optional leading global
// parameter declaration, then a sequence of variable definitions and rules.
func (p *parser) parseProgram() error {
	if p.peekKind() == token.LBrack {
		names, err := p.parseNameList()
		if err != nil {
			return err
		}
		p.globalParamNames = names
	}
	for p.peekKind() != token.EOF {
		if err := p.parseVariableOrRule(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseNameList() ([]string, error) {
	if _, err := p.expect(token.LBrack); err != nil {
		return nil, err
	}
	var names []string
	for {
		t := p.advance()
		if t.Kind != token.Ident && t.Kind != token.UIdent {
			return nil, &grammar.SyntaxError{Line: t.Line, Msg: "expected a name in parameter list"}
		}
		names = append(names, t.Lexeme)
		if p.peekKind() == token.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBrack); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *parser) parseVariableOrRule() error {
	if p.peekKind() == token.UIdent {
		return p.parseVariable()
	}
	return p.parseRule()
}

// parseVariable handles "U_IDENT = literal_or_regex" or "U_IDENT = U_IDENT",
// resolving the right-hand side immediately against variables and global
// parameters already seen. Unlike the original's lazy, closure-chained
// variables (re-evaluated against whatever context happens to be active at
// each point of use, including a callee rule's own local parameters), this
// is a single, eager pass: a variable's definition may only reference
// earlier variables and declared global parameters, never a rule's formal
// parameters. Every grammar in the retrieval pack declares variables this
// way (top of file, no forward or rule-local references), so this trades
// away a generality nothing exercises for a much simpler implementation.
func (p *parser) parseVariable() error {
	name, err := p.expect(token.UIdent)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.IdentDef); err != nil {
		return err
	}
	val, err := p.parseVariableDefn()
	if err != nil {
		return err
	}
	p.strCtx[name.Lexeme] = val
	return nil
}

func (p *parser) parseVariableDefn() (string, error) {
	switch p.peekKind() {
	case token.UIdent:
		t := p.advance()
		v, ok := p.strCtx[t.Lexeme]
		if !ok {
			return "", grammar.NewGrammarError("undefined variable %s", t.Lexeme)
		}
		return v, nil
	case token.Literal, token.Regex:
		return p.parseLiteralOrRegexString()
	default:
		return "", &grammar.SyntaxError{Line: p.peek().Line, Msg: "expected a variable definition"}
	}
}

// parseLiteralOrRegexString resolves a literal or regex token to its final
// pattern text using only the global variable table (no rule-local
// parameters), for use at the top level (variable definitions).
func (p *parser) parseLiteralOrRegexString() (string, error) {
	t := p.advance()
	switch t.Kind {
	case token.Literal:
		return regexp.QuoteMeta(t.Lexeme), nil
	case token.Regex:
		return interpolate(t.Lexeme, func(name string) (string, error) {
			if v, ok := p.strCtx[name]; ok {
				return v, nil
			}
			return "", grammar.NewGrammarError("undefined variable %s", name)
		})
	default:
		return "", &grammar.SyntaxError{Line: t.Line, Msg: "expected a literal or regex"}
	}
}

// resolveTerminalPattern resolves a literal or regex token within a rule
// body, where ctx carries the enclosing rule's bound formal parameters.
func (p *parser) resolveTerminalPattern(tok token.Token, ctx map[string]grammar.Symbol) (string, error) {
	switch tok.Kind {
	case token.Literal:
		return regexp.QuoteMeta(tok.Lexeme), nil
	case token.Regex:
		return p.interpolateWithCtx(tok.Lexeme, ctx)
	default:
		return "", grammar.NewInternalError("resolveTerminalPattern: unexpected token kind %s", tok.Kind)
	}
}

// interpolateWithCtx resolves "{name}" spans against the rule-local ctx
// first (a Terminal parameter contributes its regex, a Nonterminal
// parameter cannot be interpolated), falling back to the global variable
// table.
func (p *parser) interpolateWithCtx(s string, ctx map[string]grammar.Symbol) (string, error) {
	return interpolate(s, func(name string) (string, error) {
		return p.resolveUIdent(name, ctx)
	})
}

// resolveUIdent resolves a bare U_IDENT reference (as a pattern item's
// regex source, an argument, or an interpolation target) against ctx then
// the global variable table.
func (p *parser) resolveUIdent(name string, ctx map[string]grammar.Symbol) (string, error) {
	if bound, ok := ctx[name]; ok {
		if t, ok := bound.(grammar.Terminal); ok {
			return t.Regex, nil
		}
		return "", grammar.NewGrammarError("cannot use rule reference %q as a terminal pattern", name)
	}
	if v, ok := p.strCtx[name]; ok {
		return v, nil
	}
	return "", grammar.NewGrammarError("undefined variable %s", name)
}

// parseRule parses "IDENT [parameters] [options] : alternates ;" and
// registers a ruleTemplate keyed by (name, arity).
func (p *parser) parseRule() error {
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	name := nameTok.Lexeme

	var params []string
	if p.peekKind() == token.LBrack {
		params, err = p.parseNameList()
		if err != nil {
			return err
		}
	}

	var optsTok *token.Token
	if p.peekKind() == token.Options {
		t := p.advance()
		optsTok = &t
	}

	if _, err := p.expect(token.RuleDef); err != nil {
		return err
	}
	prodBuilders, err := p.parseAlternates()
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RuleEnd); err != nil {
		return err
	}

	build := func(ctx map[string]grammar.Symbol) (grammar.Alternation, error) {
		prods := make([]grammar.Concatenation, 0, len(prodBuilders))
		for _, pb := range prodBuilders {
			c, err := pb(ctx)
			if err != nil {
				return grammar.Alternation{}, err
			}
			prods = append(prods, c)
		}
		optsStr := ""
		if optsTok != nil {
			s, err := p.interpolateWithCtx(optsTok.Lexeme, ctx)
			if err != nil {
				return grammar.Alternation{}, err
			}
			optsStr = s
		}
		return grammar.Alternation{Productions: prods, Options: optsStr}, nil
	}

	arity := len(params)
	if p.templates[name] == nil {
		p.templates[name] = map[int]*ruleTemplate{}
	}
	if _, exists := p.templates[name][arity]; exists {
		return grammar.NewGrammarError("rule %q with %d parameter(s) declared more than once", name, arity)
	}
	p.templates[name][arity] = &ruleTemplate{params: params, build: build}
	if name == "prototype" {
		p.prototypeSeen = true
	}
	return nil
}

func (p *parser) parseAlternates() ([]func(map[string]grammar.Symbol) (grammar.Concatenation, error), error) {
	var prods []func(map[string]grammar.Symbol) (grammar.Concatenation, error)
	pb, err := p.parseProduction()
	if err != nil {
		return nil, err
	}
	prods = append(prods, pb)
	for p.peekKind() == token.Alt {
		p.advance()
		pb, err := p.parseProduction()
		if err != nil {
			return nil, err
		}
		prods = append(prods, pb)
	}
	return prods, nil
}

func isPatternElementStart(k token.Kind) bool {
	switch k {
	case token.Passive, token.Literal, token.Regex, token.LPar, token.Ident, token.UIdent:
		return true
	}
	return false
}

func (p *parser) parseProduction() (func(map[string]grammar.Symbol) (grammar.Concatenation, error), error) {
	if p.peekKind() == token.Empty {
		p.advance()
		return func(ctx map[string]grammar.Symbol) (grammar.Concatenation, error) {
			return grammar.Concatenation{}, nil
		}, nil
	}
	var elems []exprBuilder
	for isPatternElementStart(p.peekKind()) {
		eb, err := p.parsePatternElement()
		if err != nil {
			return nil, err
		}
		elems = append(elems, eb)
	}
	if len(elems) == 0 {
		return nil, &grammar.SyntaxError{Line: p.peek().Line, Msg: "expected a production"}
	}
	return func(ctx map[string]grammar.Symbol) (grammar.Concatenation, error) {
		out := make([]grammar.Expr, len(elems))
		for i, eb := range elems {
			e, err := eb(ctx)
			if err != nil {
				return grammar.Concatenation{}, err
			}
			out[i] = e
		}
		return grammar.Concatenation{Concats: out}, nil
	}, nil
}

func (p *parser) parsePatternElement() (exprBuilder, error) {
	passive := false
	if p.peekKind() == token.Passive {
		p.advance()
		passive = true
	}
	ret, err := p.parsePatternItem()
	if err != nil {
		return nil, err
	}
	switch p.peekKind() {
	case token.Star:
		p.advance()
		inner := ret
		ret = func(ctx map[string]grammar.Symbol) (grammar.Expr, error) {
			sub, err := inner(ctx)
			if err != nil {
				return nil, err
			}
			return grammar.Repetition{Sub: sub}, nil
		}
	case token.Question:
		p.advance()
		inner := ret
		ret = func(ctx map[string]grammar.Symbol) (grammar.Expr, error) {
			sub, err := inner(ctx)
			if err != nil {
				return nil, err
			}
			return grammar.OptionalExpr{Sub: sub}, nil
		}
	}
	if passive {
		inner := ret
		ret = func(ctx map[string]grammar.Symbol) (grammar.Expr, error) {
			sub, err := inner(ctx)
			if err != nil {
				return nil, err
			}
			return grammar.PassiveExpr{Sub: sub}, nil
		}
	}
	return ret, nil
}

func (p *parser) parsePatternItem() (exprBuilder, error) {
	switch p.peekKind() {
	case token.Literal, token.Regex:
		return p.parseTerminalItem()
	case token.LPar:
		p.advance()
		prods, err := p.parseAlternates()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPar); err != nil {
			return nil, err
		}
		return func(ctx map[string]grammar.Symbol) (grammar.Expr, error) {
			out := make([]grammar.Concatenation, len(prods))
			for i, pb := range prods {
				c, err := pb(ctx)
				if err != nil {
					return nil, err
				}
				out[i] = c
			}
			return grammar.Alternation{Productions: out}, nil
		}, nil
	case token.Ident:
		return p.parseIdentItem()
	case token.UIdent:
		return p.parseUIdentItem()
	default:
		return nil, &grammar.SyntaxError{Line: p.peek().Line, Msg: fmt.Sprintf("expected a pattern item, got %s", p.peekKind())}
	}
}

func (p *parser) parseTerminalItem() (exprBuilder, error) {
	tok := p.advance()
	var optsTok *token.Token
	if p.peekKind() == token.Options {
		t := p.advance()
		optsTok = &t
	}
	var embed *embedIncludeSpec
	if p.peekKind() == token.Perc {
		e, err := p.parseEmbedInclude()
		if err != nil {
			return nil, err
		}
		embed = e
	}
	return func(ctx map[string]grammar.Symbol) (grammar.Expr, error) {
		regex, err := p.resolveTerminalPattern(tok, ctx)
		if err != nil {
			return nil, err
		}
		opts := ""
		if optsTok != nil {
			opts, err = p.interpolateWithCtx(optsTok.Lexeme, ctx)
			if err != nil {
				return nil, err
			}
		}
		term := grammar.Terminal{Regex: regex, Options: opts}
		if embed != nil {
			term, err = embed.apply(p, ctx, term)
			if err != nil {
				return nil, err
			}
		}
		return term, nil
	}, nil
}

// embedIncludeSpec is the parsed (not yet instantiated) "%embed[...]{...}"
// or "%include[...]{...}" suffix on a terminal, per spec.md §6's mention of
// embed/include descriptors and SPEC_FULL.md §4.4. The original's basic
// parser never implemented this (it raised NotImplementedError); the syntax
// here is this generator's own design, narrowed to a single bracketed
// argument rather than the original package variant's general argument
// list, since every descriptor names exactly one escape pattern or one
// included rule.
type embedIncludeSpec struct {
	isInclude  bool
	argBuilder func(ctx map[string]grammar.Symbol) (grammar.Symbol, error)
	optsTok    *token.Token
}

func (e *embedIncludeSpec) apply(p *parser, ctx map[string]grammar.Symbol, term grammar.Terminal) (grammar.Terminal, error) {
	argSym, err := e.argBuilder(ctx)
	if err != nil {
		return term, err
	}
	opts := ""
	if e.optsTok != nil {
		opts, err = p.interpolateWithCtx(e.optsTok.Lexeme, ctx)
		if err != nil {
			return term, err
		}
	}
	if e.isInclude {
		nt, ok := argSym.(grammar.Nonterminal)
		if !ok {
			return term, grammar.NewGrammarError("%%include's argument must be a rule reference")
		}
		term.Include = &grammar.IncludeSpec{Target: nt, Opts: opts}
		return term, nil
	}
	t, ok := argSym.(grammar.Terminal)
	if !ok {
		return term, grammar.NewGrammarError("%%embed's argument must be a literal or regex")
	}
	term.Embed = &grammar.EmbedSpec{Escape: t, Opts: opts}
	return term, nil
}

func (p *parser) parseEmbedInclude() (*embedIncludeSpec, error) {
	if _, err := p.expect(token.Perc); err != nil {
		return nil, err
	}
	isInclude := false
	switch p.peekKind() {
	case token.Embed:
		p.advance()
	case token.Include:
		p.advance()
		isInclude = true
	default:
		return nil, &grammar.SyntaxError{Line: p.peek().Line, Msg: "expected 'embed' or 'include'"}
	}
	if _, err := p.expect(token.LBrack); err != nil {
		return nil, err
	}
	argBuilder, err := p.parseArgument()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBrack); err != nil {
		return nil, err
	}
	var optsTok *token.Token
	if p.peekKind() == token.Options {
		t := p.advance()
		optsTok = &t
	}
	return &embedIncludeSpec{isInclude: isInclude, argBuilder: argBuilder, optsTok: optsTok}, nil
}

// parseIdentItem parses "IDENT [arguments]": a reference to another rule
// (or, if IDENT names a formal parameter of the enclosing rule, whatever
// that parameter is bound to).
func (p *parser) parseIdentItem() (exprBuilder, error) {
	tok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	name := tok.Lexeme
	var argBuilders []func(map[string]grammar.Symbol) (grammar.Symbol, error)
	if p.peekKind() == token.LBrack {
		argBuilders, err = p.parseArguments()
		if err != nil {
			return nil, err
		}
	}
	return func(ctx map[string]grammar.Symbol) (grammar.Expr, error) {
		args := make([]grammar.Symbol, len(argBuilders))
		for i, ab := range argBuilders {
			sym, err := ab(ctx)
			if err != nil {
				return nil, err
			}
			args[i] = sym
		}
		targetName := name
		if bound, ok := ctx[name]; ok {
			if t, ok := bound.(grammar.Terminal); ok {
				if len(args) > 0 {
					return nil, grammar.NewGrammarError("cannot apply arguments to terminal parameter %q", name)
				}
				return t, nil
			}
			targetName = bound.(grammar.Nonterminal).Symbol
		}
		return grammar.Nonterminal{Symbol: targetName, Args: args}, nil
	}, nil
}

func (p *parser) parseUIdentItem() (exprBuilder, error) {
	tok, err := p.expect(token.UIdent)
	if err != nil {
		return nil, err
	}
	name := tok.Lexeme
	var optsTok *token.Token
	if p.peekKind() == token.Options {
		t := p.advance()
		optsTok = &t
	}
	return func(ctx map[string]grammar.Symbol) (grammar.Expr, error) {
		regex, err := p.resolveUIdent(name, ctx)
		if err != nil {
			return nil, err
		}
		opts := ""
		if optsTok != nil {
			opts, err = p.interpolateWithCtx(optsTok.Lexeme, ctx)
			if err != nil {
				return nil, err
			}
		}
		return grammar.Terminal{Regex: regex, Options: opts}, nil
	}, nil
}

// parseArguments parses "[ argument {, argument} ]". Unlike pattern items,
// a bare IDENT argument never indirects through the enclosing rule's
// parameters — it always names a rule directly, matching the original's
// own `argument: IDENT -> Nonterminal(IDENT)` (no context lookup, unlike
// `pattern_item: IDENT`'s lookup).
func (p *parser) parseArguments() ([]func(map[string]grammar.Symbol) (grammar.Symbol, error), error) {
	if _, err := p.expect(token.LBrack); err != nil {
		return nil, err
	}
	var args []func(map[string]grammar.Symbol) (grammar.Symbol, error)
	ab, err := p.parseArgument()
	if err != nil {
		return nil, err
	}
	args = append(args, ab)
	for p.peekKind() == token.Comma {
		p.advance()
		ab, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		args = append(args, ab)
	}
	if _, err := p.expect(token.RBrack); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parseArgument() (func(map[string]grammar.Symbol) (grammar.Symbol, error), error) {
	switch p.peekKind() {
	case token.Literal, token.Regex:
		tok := p.advance()
		return func(ctx map[string]grammar.Symbol) (grammar.Symbol, error) {
			regex, err := p.resolveTerminalPattern(tok, ctx)
			if err != nil {
				return nil, err
			}
			return grammar.Terminal{Regex: regex}, nil
		}, nil
	case token.Ident:
		tok := p.advance()
		name := tok.Lexeme
		return func(ctx map[string]grammar.Symbol) (grammar.Symbol, error) {
			return grammar.Nonterminal{Symbol: name}, nil
		}, nil
	case token.UIdent:
		tok := p.advance()
		name := tok.Lexeme
		return func(ctx map[string]grammar.Symbol) (grammar.Symbol, error) {
			regex, err := p.resolveUIdent(name, ctx)
			if err != nil {
				return nil, err
			}
			return grammar.Terminal{Regex: regex}, nil
		}, nil
	default:
		return nil, &grammar.SyntaxError{Line: p.peek().Line, Msg: "expected an argument"}
	}
}
