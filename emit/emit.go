// Package emit walks an analyzed grammar and synthesizes a named map of
// editor contexts implementing a generalised recursive-descent parser: one
// context per decision point (nonterminal entry, branch point, branch arm,
// failure handler, follow-set check, meta-scope wrapper, terminal action),
// discovered by a demand-driven worklist starting from the grammar's start
// symbol.
//
// Grounded on original_source/sublime_generator.py's SublimeSyntax class for
// the worklist/memoization shape (its enqueue_todo decorator, reproduced
// here as the explicit enqueue method below) and the production-stack/branch
// construction; adapted to spec.md's own fixed-context names and passive-lane
// frame depths where the two differ.
package emit

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/nuchi/sublime-from-cfg/analyze"
	"github.com/nuchi/sublime-from-cfg/grammar"
)

func tracer() tracing.Trace {
	return tracing.Select("sbnf.emit")
}

type builder func() (Context, error)

type job struct {
	name  string
	build builder
}

type emitter struct {
	g      *grammar.Grammar
	tables *analyze.Tables
	opts   grammar.SyntaxOptions

	out      *Output
	seen     map[string]string // name -> an opaque key identifying its arguments
	todo     []job
	startNm  string
}

func boolPtr(b bool) *bool { return &b }

func (e *emitter) scopeTag(tag string) string {
	return tag + e.opts.ResolvedScopePostfix()
}

// enqueue registers name (unless already known) with the given builder,
// keyed by argsKey. A second enqueue of the same name with a different
// argsKey is a programming error in the emitter: the same Context-name
// string must always denote the same underlying computation.
func (e *emitter) enqueue(name, argsKey string, build builder) (string, error) {
	if existing, ok := e.seen[name]; ok {
		if existing != argsKey {
			return "", grammar.NewInternalError(
				"emitter name collision: %q requested with conflicting arguments", name)
		}
		return name, nil
	}
	e.seen[name] = argsKey
	e.todo = append(e.todo, job{name: name, build: build})
	return name, nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ",")
}

// suppressProto reports whether contexts synthesized for nt's rule should
// carry meta_include_prototype: false, per that rule's alternation options.
func (e *emitter) suppressProto(nt grammar.Nonterminal) bool {
	alt, ok := e.g.Lookup(grammar.NP(nt))
	return ok && !alt.Proto()
}

func withProtoSuppression(ctx Context, suppress bool) Context {
	if !suppress {
		return ctx
	}
	return append(Context{{MetaIncludePrototype: boolPtr(false)}}, ctx...)
}

// Emit analyzes nothing further (that's analyze.Analyze's job) and produces
// the complete, closed set of named contexts for g's start symbol.
func Emit(g *grammar.Grammar, tables *analyze.Tables, opts grammar.SyntaxOptions) (*Output, error) {
	t := tracer()
	e := &emitter{
		g:      g,
		tables: tables,
		opts:   opts,
		out:    newOutput(),
		seen:   map[string]string{},
	}

	e.out.set("pop1!", Context{{Match: match(""), Pop: 1}})
	e.out.set("pop2!", Context{{Match: match(""), Pop: 2}})
	e.out.set("pop3!", Context{{Match: match(""), Pop: 3}})
	e.out.set("pop5!", Context{{Match: match(""), Pop: 5}})
	e.out.set("consume!", Context{{Match: match(`\S`), Scope: e.scopeTag("meta.consume"), Pop: 3}})
	e.out.set("fail!", Context{{Match: match(`(?=\S)`), Pop: 1}})

	startName, err := e.symbolName(g.Start)
	if err != nil {
		return nil, err
	}
	e.startNm = startName

	illegal := e.scopeTag("invalid.illegal")
	e.out.set("fail2!", Context{
		{Match: match(`\n`), Set: []string{"reset2!"}},
		{Match: match(`\S`), Scope: illegal},
	})
	e.out.set("reset2!", Context{matchSet("", []string{"fail2!", startName})})
	e.out.set("fail1!", Context{
		{Match: match(`\n`), Set: []string{"reset1!"}},
		{Match: match(`\S`), Scope: illegal},
	})
	e.out.set("reset1!", Context{matchSet("", []string{"fail1!", "fail2!", startName})})
	e.out.set("main", Context{{Match: match(""), Push: []string{"fail1!", "fail2!", startName}}})

	if g.Has(grammar.Nonterminal{Symbol: "prototype"}) {
		if _, err := e.nonterminalName(grammar.Nonterminal{Symbol: "prototype"}); err != nil {
			return nil, err
		}
	}

	t.Debugf("emitter worklist primed with %d pending jobs", len(e.todo))
	for len(e.todo) > 0 {
		j := e.todo[len(e.todo)-1]
		e.todo = e.todo[:len(e.todo)-1]
		if _, already := e.out.Context(j.name); already {
			continue
		}
		ctx, err := j.build()
		if err != nil {
			return nil, err
		}
		e.out.set(j.name, ctx)
	}
	return e.out, nil
}

// symbolName dispatches a grammar symbol to its entry context name: a
// Terminal to its terminal context, a Nonterminal either directly to its
// entry (no meta-scope options, or already passive) or through the
// meta-scope wrapper.
func (e *emitter) symbolName(sym grammar.Symbol) (string, error) {
	nt, ok := sym.(grammar.Nonterminal)
	if !ok {
		return e.terminalName(sym.(grammar.Terminal))
	}
	if nt.Passive {
		return e.nonterminalName(nt)
	}
	alt, ok := e.g.Lookup(nt)
	if !ok {
		return "", grammar.NewGrammarError("no such rule: %s", nt.Name())
	}
	if len(alt.OptionList()) == 0 {
		return e.nonterminalName(nt)
	}
	return e.metaWrapperName(nt)
}
