// Package grammar holds the data model shared by the SGL frontend and the
// normalize/analyze/emit core: Terminal and Nonterminal symbols, the
// pre-normalization expression shapes (Repetition, OptionalExpr, Passive,
// nested Alternation), and the post-normalization Grammar itself.
//
// Identity throughout is structural, not by address: two Terminals with the
// same regex, options, passive flag and embed/include descriptor are the
// same terminal. Synthesized names are short content hashes of that
// structure, computed with github.com/cnf/structhash (the teacher's own
// hashing dependency, used for item identity in lr/earley).
package grammar

import (
	"strings"

	"github.com/cnf/structhash"
)

// Expr is anything that can appear in a production before normalization:
// a Terminal, a Nonterminal, or one of the EBNF sugar shapes. Name returns a
// canonical, deterministic textual identity for the node.
type Expr interface {
	Name() string
}

// Symbol is a normalized Expr: either a Terminal or a Nonterminal. Productions
// contain only Symbols once the normalizer has run.
type Symbol interface {
	Expr
	IsPassive() bool
	isSymbol()
}

func shortHash(v interface{}) string {
	h, err := structhash.Hash(v, 1)
	if err != nil {
		// structhash only fails on unhashable (e.g. channel/func) fields;
		// none of our hash inputs carry those.
		panic(err)
	}
	if len(h) > 7 {
		h = h[len(h)-7:]
	}
	return h
}

// --- Terminal ---------------------------------------------------------------

// EmbedSpec describes a `%embed[escape]{options}` directive on a Terminal.
type EmbedSpec struct {
	Escape Terminal
	Opts   string
}

func (e *EmbedSpec) key() [2]string {
	if e == nil {
		return [2]string{}
	}
	return [2]string{e.Escape.Key(), e.Opts}
}

// IncludeSpec describes a `%include[rule]{options}` directive on a Terminal.
type IncludeSpec struct {
	Target Nonterminal
	Opts   string
}

func (i *IncludeSpec) key() [2]string {
	if i == nil {
		return [2]string{}
	}
	return [2]string{i.Target.Key(), i.Opts}
}

// Terminal is a leaf symbol: a regex pattern plus free-form options.
type Terminal struct {
	Regex   string
	Options string // empty means "no options string"; comma-separated tags/kv
	Passive bool
	Embed   *EmbedSpec
	Include *IncludeSpec
}

func (Terminal) isSymbol() {}

// IsPassive reports whether this terminal only ever matches in the passive
// (lookahead-only) lane.
func (t Terminal) IsPassive() bool { return t.Passive }

// Key is a stable structural identity string, used for map keys, set
// membership, and equality checks. It is not the same as Name: Key need not
// be short or human-legible.
func (t Terminal) Key() string {
	var b strings.Builder
	b.WriteString(t.Regex)
	b.WriteByte('\x00')
	b.WriteString(t.Options)
	b.WriteByte('\x00')
	if t.Passive {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	b.WriteByte('\x00')
	ek := t.Embed.key()
	b.WriteString(ek[0])
	b.WriteByte('\x00')
	b.WriteString(ek[1])
	b.WriteByte('\x00')
	ik := t.Include.key()
	b.WriteString(ik[0])
	b.WriteByte('\x00')
	b.WriteString(ik[1])
	return b.String()
}

type terminalHashInput struct {
	Regex, Options          string
	Passive                 bool
	EmbedEscape, EmbedOpts  string
	IncludeTarget, InclOpts string
}

// Name is the terminal's canonical identity string, "/T/<hash>", used as a
// context name by the emitter.
func (t Terminal) Name() string {
	ek := t.Embed.key()
	ik := t.Include.key()
	h := shortHash(terminalHashInput{
		Regex: t.Regex, Options: t.Options, Passive: t.Passive,
		EmbedEscape: ek[0], EmbedOpts: ek[1],
		IncludeTarget: ik[0], InclOpts: ik[1],
	})
	return "/T/" + h
}

// optionsList splits Options on commas into trimmed bare tags and key:value
// pairs, mirroring the SGL surface's loose "comma-separated tags and kv
// pairs" options syntax.
func optionsList(options string) []string {
	if options == "" {
		return nil
	}
	parts := strings.Split(options, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// OptionList returns the bare (non key:value) option tags, in source order.
func (t Terminal) OptionList() []string {
	var out []string
	for _, o := range optionsList(t.Options) {
		if !strings.Contains(o, ":") {
			out = append(out, o)
		}
	}
	return out
}

// OptionKV returns the key:value options as a map, last-one-wins on
// duplicate keys (matching a plain dict comprehension in the original).
func (t Terminal) OptionKV() map[string]string {
	ret := map[string]string{}
	for _, o := range optionsList(t.Options) {
		k, v, ok := strings.Cut(o, ":")
		if !ok {
			continue
		}
		ret[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return ret
}

// --- Nonterminal -------------------------------------------------------------

// Nonterminal is a named symbol, optionally parameterized and/or passive.
// Arguments are used only by the SGL frontend to select among parameterized
// rule templates; by the time the core sees a Nonterminal they are part of
// its identity.
type Nonterminal struct {
	Symbol  string
	Args    []Symbol
	Passive bool
}

func (Nonterminal) isSymbol() {}

// IsPassive reports whether this is the passive variant of its rule.
func (n Nonterminal) IsPassive() bool { return n.Passive }

// NP returns the non-passive variant of n (np(s) in the original).
func NP(s Symbol) Symbol {
	switch v := s.(type) {
	case Terminal:
		v.Passive = false
		return v
	case Nonterminal:
		v.Passive = false
		return v
	default:
		return s
	}
}

// Key is n's structural identity, used for map keys and set membership.
func (n Nonterminal) Key() string {
	var b strings.Builder
	b.WriteString(n.Symbol)
	b.WriteByte('\x00')
	for _, a := range n.Args {
		b.WriteString(a.Name())
		b.WriteByte('\x01')
	}
	b.WriteByte('\x00')
	if n.Passive {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	return b.String()
}

type nonterminalHashInput struct {
	Symbol  string
	Args    []string
	Passive bool
}

// Name is n's canonical textual identity. A zero-arg, non-passive
// nonterminal is named after its own symbol (so user-written rules keep
// their own names); everything else gets a "<symbol>/<hash>" name, the
// hash computed over the symbol, argument identities, and the passive flag.
//
// "main" is special-cased to "main/" so a grammar's own entry rule can never
// collide with the emitter's fixed "main" utility context.
func (n Nonterminal) Name() string {
	if len(n.Args) == 0 && !n.Passive {
		if n.Symbol == "main" {
			return n.Symbol + "/"
		}
		return n.Symbol
	}
	argKeys := make([]string, len(n.Args))
	for i, a := range n.Args {
		argKeys[i] = a.Name()
	}
	h := shortHash(nonterminalHashInput{Symbol: n.Symbol, Args: argKeys, Passive: n.Passive})
	return n.Symbol + "/" + h
}

// --- Pre-normalization expression shapes -------------------------------------

// Repetition is `X*`: zero or more repetitions of Sub, folded to its
// innermost repeated sub (X** collapses to X*).
type Repetition struct {
	Sub Expr
}

func (r Repetition) Name() string {
	return "/*/" + shortHash(struct{ Sub string }{r.Sub.Name()})
}

// Unwrap returns the innermost non-Repetition sub-expression.
func (r Repetition) Unwrap() Expr {
	sub := r.Sub
	for {
		if inner, ok := sub.(Repetition); ok {
			sub = inner.Sub
			continue
		}
		return sub
	}
}

// OptionalExpr is `X?`: zero or one occurrence of Sub.
type OptionalExpr struct {
	Sub Expr
}

func (o OptionalExpr) Name() string {
	return "/opt/" + shortHash(struct{ Sub string }{o.Sub.Name()})
}

// PassiveExpr is `~X`: a lookahead-only occurrence of Sub, not yet collapsed
// onto the symbol it wraps. The normalizer eliminates every PassiveExpr node.
type PassiveExpr struct {
	Sub Expr
}

func (p PassiveExpr) Name() string {
	return "/~/" + shortHash(struct{ Sub string }{p.Sub.Name()})
}

// SkipMarker is the normalizer's internal placeholder for a PassiveExpr
// during pass 1 (expandPassives); it never survives past pass 5
// (collapsePassives), which consumes it to set the passive flag on the
// symbol immediately following it.
type SkipMarker struct{}

func (SkipMarker) Name() string { return "/skip/" }

// IsSkip reports whether e is a SkipMarker.
func IsSkip(e Expr) bool {
	_, ok := e.(SkipMarker)
	return ok
}

// Concatenation is an ordered sequence of expressions; an empty sequence is
// the empty production (epsilon).
type Concatenation struct {
	Concats []Expr
}

func (c Concatenation) Name() string {
	parts := make([]string, len(c.Concats))
	for i, e := range c.Concats {
		parts[i] = e.Name()
	}
	return "/cat/" + shortHash(struct{ Parts []string }{parts})
}

// Symbols returns c's concatenation as a Symbol slice, valid only after
// normalization has eliminated every non-Symbol Expr node.
func (c Concatenation) Symbols() []Symbol {
	out := make([]Symbol, len(c.Concats))
	for i, e := range c.Concats {
		out[i] = e.(Symbol)
	}
	return out
}

// Alternation is an ordered list of productions (Concatenations) plus a
// free-form options string.
type Alternation struct {
	Productions []Concatenation
	Options     string
}

func (a Alternation) Name() string {
	parts := make([]string, len(a.Productions))
	for i, p := range a.Productions {
		parts[i] = p.Name()
	}
	return "/alt/" + shortHash(struct {
		Parts []string
		Opts  string
	}{parts, a.Options})
}

// OptionList returns a's bare (non key:value) option tags: meta-scope names
// applied to the text spanned by the nonterminal this alternation belongs to.
func (a Alternation) OptionList() []string {
	var out []string
	for _, o := range optionsList(a.Options) {
		if !strings.Contains(o, ":") {
			out = append(out, o)
		}
	}
	return out
}

// OptionKV returns a's key:value options.
func (a Alternation) OptionKV() map[string]string {
	ret := map[string]string{}
	for _, o := range optionsList(a.Options) {
		k, v, ok := strings.Cut(o, ":")
		if !ok {
			continue
		}
		ret[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return ret
}

// Proto reports whether this alternation's body should have the prototype
// rule spliced in (true unless "include-prototype: false" is set).
func (a Alternation) Proto() bool {
	return a.OptionKV()["include-prototype"] != "false"
}

// NoProto is the options-string fragment the normalizer appends to every
// fresh rule introduced while rewriting an alternation that itself suppresses
// the prototype, propagating the suppression.
const NoProto = "include-prototype: false"
