package normalize

import (
	"fmt"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

// expandPassives replaces each PassiveExpr(e) inside a production with the
// two-symbol sequence SkipMarker, e. The actual passivation is deferred to
// collapsePassives (pass 5), after the structural rewrites (passes 2-4) have
// turned whatever e was into a plain Symbol.
func expandPassives(_ grammar.Nonterminal, alt grammar.Alternation, _ *[]pending) (grammar.Alternation, error) {
	out := make([]grammar.Concatenation, len(alt.Productions))
	for pi, prod := range alt.Productions {
		var items []grammar.Expr
		for _, item := range prod.Concats {
			if pe, ok := item.(grammar.PassiveExpr); ok {
				items = append(items, grammar.SkipMarker{}, pe.Sub)
			} else {
				items = append(items, item)
			}
		}
		out[pi] = grammar.Concatenation{Concats: items}
	}
	alt.Productions = out
	return alt, nil
}

// protoSuffix returns the options string fresh rules introduced while
// rewriting alt should carry: empty if alt splices in the prototype, or
// grammar.NoProto to propagate the suppression.
func protoSuffix(alt grammar.Alternation) string {
	if alt.Proto() {
		return ""
	}
	return grammar.NoProto
}

// rewriteOptional replaces OptionalExpr(sub) with a fresh nonterminal N and
// enqueues N -> epsilon | sub.
func rewriteOptional(nt grammar.Nonterminal, alt grammar.Alternation, todo *[]pending) (grammar.Alternation, error) {
	out := make([]grammar.Concatenation, len(alt.Productions))
	for pi, prod := range alt.Productions {
		items := make([]grammar.Expr, len(prod.Concats))
		for ci, item := range prod.Concats {
			opt, ok := item.(grammar.OptionalExpr)
			if !ok {
				items[ci] = item
				continue
			}
			optNt := grammar.Nonterminal{Symbol: "/opt/" + opt.Name()}
			*todo = append(*todo, pending{optNt, grammar.Alternation{
				Productions: []grammar.Concatenation{
					{Concats: nil},
					{Concats: []grammar.Expr{opt.Sub}},
				},
				Options: protoSuffix(alt),
			}})
			items[ci] = optNt
		}
		out[pi] = grammar.Concatenation{Concats: items}
	}
	alt.Productions = out
	return alt, nil
}

// rewriteRepetition rewrites a production of the form `a X* b` to `a R`,
// enqueueing R -> b | sub(X*) R. The right-recursive shape is deliberate: it
// yields a tail-call-friendly stack encoding in the emitter. Only the first
// Repetition encountered in a production is rewritten per call; any
// Repetition nested in `b` is handled when R's own rule is normalized off
// the worklist.
func rewriteRepetition(nt grammar.Nonterminal, alt grammar.Alternation, todo *[]pending) (grammar.Alternation, error) {
	num := 0
	out := make([]grammar.Concatenation, len(alt.Productions))
	for pi, prod := range alt.Productions {
		var newProd []grammar.Expr
		for i, item := range prod.Concats {
			rep, ok := item.(grammar.Repetition)
			if !ok {
				newProd = append(newProd, item)
				continue
			}
			sub := rep.Unwrap()
			newNt := grammar.Nonterminal{Symbol: fmt.Sprintf("/*-%d/%s", num, nt.Name())}
			num++
			newProd = append(newProd, newNt)
			*todo = append(*todo, pending{newNt, grammar.Alternation{
				Productions: []grammar.Concatenation{
					{Concats: append([]grammar.Expr(nil), prod.Concats[i+1:]...)},
					{Concats: []grammar.Expr{sub, newNt}},
				},
				Options: protoSuffix(alt),
			}})
			break
		}
		out[pi] = grammar.Concatenation{Concats: newProd}
	}
	alt.Productions = out
	return alt, nil
}

// rewriteAlternation replaces each nested Alternation with a fresh
// nonterminal enqueued with the same productions.
func rewriteAlternation(nt grammar.Nonterminal, alt grammar.Alternation, todo *[]pending) (grammar.Alternation, error) {
	num := 0
	out := make([]grammar.Concatenation, len(alt.Productions))
	for pi, prod := range alt.Productions {
		items := make([]grammar.Expr, len(prod.Concats))
		for ci, item := range prod.Concats {
			nested, ok := item.(grammar.Alternation)
			if !ok {
				items[ci] = item
				continue
			}
			newNt := grammar.Nonterminal{Symbol: fmt.Sprintf("/alt-%d/%s", num, nt.Name())}
			num++
			*todo = append(*todo, pending{newNt, grammar.Alternation{
				Productions: nested.Productions,
				Options:     protoSuffix(alt),
			}})
			items[ci] = newNt
		}
		out[pi] = grammar.Concatenation{Concats: items}
	}
	alt.Productions = out
	return alt, nil
}

// collapsePassives walks each production right-to-left: whenever a
// SkipMarker is seen, the following symbol's passive flag is set. Every
// SkipMarker is consumed; none may survive.
func collapsePassives(_ grammar.Nonterminal, alt grammar.Alternation, _ *[]pending) (grammar.Alternation, error) {
	out := make([]grammar.Concatenation, len(alt.Productions))
	for pi, prod := range alt.Productions {
		var newProd []grammar.Expr
		for i := len(prod.Concats) - 1; i >= 0; i-- {
			item := prod.Concats[i]
			if grammar.IsSkip(item) {
				if len(newProd) == 0 {
					return alt, grammar.NewInternalError("passive mark with nothing following it")
				}
				sym, err := passivate(newProd[0])
				if err != nil {
					return alt, err
				}
				newProd[0] = sym
				continue
			}
			newProd = append([]grammar.Expr{item}, newProd...)
		}
		out[pi] = grammar.Concatenation{Concats: newProd}
	}
	alt.Productions = out
	return alt, nil
}

func passivate(e grammar.Expr) (grammar.Expr, error) {
	switch v := e.(type) {
	case grammar.Terminal:
		v.Passive = true
		return v, nil
	case grammar.Nonterminal:
		v.Passive = true
		return v, nil
	default:
		return nil, badType("collapsePassives", e)
	}
}
