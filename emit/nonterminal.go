package emit

import (
	"fmt"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

// nonterminalName is the entry-point name/context pair for a grammar
// symbol's bare rule entry (kind 1: nonterminal entry, and its passive-
// variant counterpart, kind 4 dispatches through the same name).
func (e *emitter) nonterminalName(nt grammar.Nonterminal) (string, error) {
	name := nt.Name()
	return e.enqueue(name, "nt:"+nt.Key(), func() (Context, error) {
		return e.nonterminalContext(nt)
	})
}

func (e *emitter) nonterminalContext(nt grammar.Nonterminal) (Context, error) {
	if !nt.Passive {
		passiveExists := len(e.tables.PTable(nt)) > 0
		return e.nonterminalNPNP(nt, passiveExists)
	}
	return e.nonterminalP(nt)
}

// nonterminalNPNP builds kind-1 bodies: the active-lane entry for a
// non-passive nonterminal.
func (e *emitter) nonterminalNPNP(npNt grammar.Nonterminal, passiveExists bool) (Context, error) {
	npTable := e.tables.NPTable(npNt)
	if len(npTable) == 0 {
		if !passiveExists {
			return nil, grammar.NewInternalError("nonterminal %s has neither an active nor a passive lookahead table", npNt.Name())
		}
		ctx, err := e.nonterminalNPPContext(npNt)
		return ctx, err
	}

	alt, ok := e.g.Lookup(npNt)
	if !ok {
		return nil, grammar.NewGrammarError("no such rule: %s", npNt.Name())
	}
	prods := alt.Productions

	if len(prods) == 1 {
		if len(prods[0].Concats) == 0 {
			return withProtoSuppression(Context{{Match: match(""), Pop: 2}}, e.suppressProto(npNt)), nil
		}
		target, err := e.productionStack(prods[0])
		if err != nil {
			return nil, err
		}
		return withProtoSuppression(Context{matchSet("", target)}, e.suppressProto(npNt)), nil
	}

	var ctx Context
	for _, entry := range npTable {
		indices := entry.Indices
		if passiveExists || len(indices) > 1 {
			branchName, err := e.npNpBranchName(npNt, indices)
			if err != nil {
				return nil, err
			}
			ctx = append(ctx, matchSet("(?="+entry.Regex+")", []string{branchName}))
			continue
		}

		prod := prods[indices[0]]
		if len(prod.Concats) > 0 {
			if lastNt, ok := prod.Concats[len(prod.Concats)-1].(grammar.Nonterminal); ok && lastNt.Key() == npNt.Key() {
				stack, err := e.productionStack(grammar.Concatenation{Concats: prod.Concats[:len(prod.Concats)-1]})
				if err != nil {
					return nil, err
				}
				ctx = append(ctx, Action{Match: match("(?=" + entry.Regex + ")"), Push: append([]string{"pop2!"}, stack...)})
				continue
			}
		}

		prodName, err := e.productionName(npNt, indices[0])
		if err != nil {
			return nil, err
		}
		ctx = append(ctx, matchSet("(?="+entry.Regex+")", []string{prodName}))
	}

	if passiveExists {
		toP, err := e.npNpBranchToPName(npNt)
		if err != nil {
			return nil, err
		}
		ctx = append(ctx, matchSet(`(?=\S)`, []string{toP}))
	} else {
		ctx = append(ctx, Action{Include: "fail!"})
	}
	return withProtoSuppression(ctx, e.suppressProto(npNt)), nil
}

// nonterminalNPPContext builds kind-4 bodies: the active-to-passive
// transition entry ("<name>@p!"), walking the passive lane's table.
func (e *emitter) nonterminalNPPContext(npNt grammar.Nonterminal) (Context, error) {
	var ctx Context
	for _, entry := range e.tables.PTable(npNt) {
		branchName, err := e.npPBranchName(npNt, entry.Indices)
		if err != nil {
			return nil, err
		}
		ctx = append(ctx, matchSet("(?="+entry.Regex+")", []string{branchName}))
	}
	return withProtoSuppression(ctx, e.suppressProto(npNt)), nil
}

func (e *emitter) nonterminalNPPName(npNt grammar.Nonterminal) (string, error) {
	name := npNt.Name() + "@p!"
	return e.enqueue(name, "nt-p:"+npNt.Key(), func() (Context, error) {
		return e.nonterminalNPPContext(npNt)
	})
}

// nonterminalP builds the entry for a symbol that is itself a passive
// nonterminal (i.e. reached via symbolName when nt.Passive is already true).
func (e *emitter) nonterminalP(pNt grammar.Nonterminal) (Context, error) {
	npNt := grammar.NP(pNt).(grammar.Nonterminal)
	combined := map[string]map[int]bool{}
	for _, entry := range e.tables.PTable(npNt) {
		set := combined[entry.Regex]
		if set == nil {
			set = map[int]bool{}
			combined[entry.Regex] = set
		}
		for _, i := range entry.Indices {
			set[i] = true
		}
	}
	for _, entry := range e.tables.NPTable(npNt) {
		set := combined[entry.Regex]
		if set == nil {
			set = map[int]bool{}
			combined[entry.Regex] = set
		}
		for _, i := range entry.Indices {
			set[i] = true
		}
	}

	var ctx Context
	for _, entry := range sortedCombined(combined) {
		branchName, err := e.pBranchName(pNt, entry.Indices)
		if err != nil {
			return nil, err
		}
		ctx = append(ctx, matchSet("(?="+entry.Regex+")", []string{branchName}))
	}
	return withProtoSuppression(ctx, e.suppressProto(pNt)), nil
}

func sortedCombined(combined map[string]map[int]bool) []struct {
	Regex   string
	Indices []int
} {
	var out []struct {
		Regex   string
		Indices []int
	}
	for regex, set := range combined {
		idxs := make([]int, 0, len(set))
		for i := range set {
			idxs = append(idxs, i)
		}
		out = append(out, struct {
			Regex   string
			Indices []int
		}{regex, sortInts(idxs)})
	}
	// deterministic, alphabetical by regex: the original iterates a raw
	// Python set union here, whose order depends on string hash seeding and
	// is not actually stable across runs; sorting is a deliberate
	// strengthening to satisfy byte-identical output across compilations.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Regex > out[j].Regex; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func sortInts(xs []int) []int {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
	return xs
}

// --- branch-point contexts (kind 2) -----------------------------------------

func npNpBranchNameStr(npNt grammar.Nonterminal, indices []int) string {
	return fmt.Sprintf("%s@%s", npNt.Name(), joinInts(indices))
}

func (e *emitter) npNpBranchName(npNt grammar.Nonterminal, indices []int) (string, error) {
	name := npNpBranchNameStr(npNt, indices)
	return e.enqueue(name, "npnp-branch:"+npNt.Key()+":"+joinInts(indices), func() (Context, error) {
		return e.npNpBranchContext(npNt, indices)
	})
}

func (e *emitter) npNpBranchContext(npNt grammar.Nonterminal, indices []int) (Context, error) {
	passiveExists := len(e.tables.PTable(npNt)) > 0
	var branches []string
	for pos, i := range indices {
		last := !passiveExists && pos == len(indices)-1
		itemName, err := e.npNpBranchItemName(npNt, indices, i, last)
		if err != nil {
			return nil, err
		}
		branches = append(branches, itemName)
	}
	if passiveExists {
		toP, err := e.npNpBranchToPName(npNt)
		if err != nil {
			return nil, err
		}
		branches = append(branches, toP)
	}
	name := npNpBranchNameStr(npNt, indices)
	return Context{{Match: match(""), BranchPoint: name, Branch: branches}}, nil
}

func (e *emitter) npNpBranchToPName(npNt grammar.Nonterminal) (string, error) {
	name := npNt.Name() + "@to_p!"
	return e.enqueue(name, "np-to-p:"+npNt.Key(), func() (Context, error) {
		ppName, err := e.nonterminalNPPName(npNt)
		if err != nil {
			return nil, err
		}
		return Context{{Match: match(""), Pop: 1, Set: []string{ppName}}}, nil
	})
}

func (e *emitter) npNpBranchItemName(npNt grammar.Nonterminal, indices []int, i int, last bool) (string, error) {
	branchName := npNpBranchNameStr(npNt, indices)
	name := fmt.Sprintf("%s!%d", branchName, i)
	return e.enqueue(name, fmt.Sprintf("npnp-item:%s:%d", branchName, i), func() (Context, error) {
		failName := "pop3!"
		if !last {
			var err error
			failName, err = e.npNpBranchFailName(npNt, indices)
			if err != nil {
				return nil, err
			}
		}
		var follow []string
		if !e.skipFollow(npNt) {
			followName, err := e.followName(npNt)
			if err != nil {
				return nil, err
			}
			follow = []string{followName, "pop2!"}
		}
		prodName, err := e.productionName(npNt, i)
		if err != nil {
			return nil, err
		}
		stack := append([]string{"pop3!", failName}, follow...)
		stack = append(stack, prodName)
		return Context{matchSet("", stack)}, nil
	})
}

func (e *emitter) npNpBranchFailName(npNt grammar.Nonterminal, indices []int) (string, error) {
	branchName := npNpBranchNameStr(npNt, indices)
	name := branchName + "@fail!"
	return e.enqueue(name, "npnp-fail:"+branchName, func() (Context, error) {
		return Context{{Match: match(""), Fail: branchName}}, nil
	})
}

// --- np->p lane branch contexts ---------------------------------------------

func npPBranchNameStr(npNt grammar.Nonterminal, indices []int) string {
	return fmt.Sprintf("%s@p!@%s", npNt.Name(), joinInts(indices))
}

func (e *emitter) npPBranchName(npNt grammar.Nonterminal, indices []int) (string, error) {
	name := npPBranchNameStr(npNt, indices)
	return e.enqueue(name, "npp-branch:"+npNt.Key()+":"+joinInts(indices), func() (Context, error) {
		return e.npPBranchContext(npNt, indices)
	})
}

func (e *emitter) npPBranchContext(npNt grammar.Nonterminal, indices []int) (Context, error) {
	var branches []string
	for _, i := range indices {
		itemName, err := e.npPBranchItemName(npNt, indices, i)
		if err != nil {
			return nil, err
		}
		branches = append(branches, itemName)
	}
	branches = append(branches, "consume!")
	name := npPBranchNameStr(npNt, indices)
	return Context{{Match: match(""), BranchPoint: name, Branch: branches}}, nil
}

func (e *emitter) npPBranchItemName(npNt grammar.Nonterminal, indices []int, i int) (string, error) {
	branchName := npPBranchNameStr(npNt, indices)
	name := fmt.Sprintf("%s!%d", branchName, i)
	return e.enqueue(name, fmt.Sprintf("npp-item:%s:%d", branchName, i), func() (Context, error) {
		failName, err := e.npPBranchFailName(npNt, indices)
		if err != nil {
			return nil, err
		}
		var follow []string
		if !e.skipFollow(npNt) {
			followName, err := e.followName(npNt)
			if err != nil {
				return nil, err
			}
			follow = []string{followName, "pop2!"}
		}
		prodName, err := e.productionName(npNt, i)
		if err != nil {
			return nil, err
		}
		// one stack frame deeper than the active lane: the "@p!" transition
		// added an extra wrapping frame, per spec's passive-lane depth rule.
		stack := append([]string{"pop5!", failName}, follow...)
		stack = append(stack, prodName)
		return Context{matchSet("", stack)}, nil
	})
}

func (e *emitter) npPBranchFailName(npNt grammar.Nonterminal, indices []int) (string, error) {
	branchName := npPBranchNameStr(npNt, indices)
	name := branchName + "@fail!"
	return e.enqueue(name, "npp-fail:"+branchName, func() (Context, error) {
		return Context{{Match: match(""), Fail: branchName}}, nil
	})
}

// --- fully-passive nonterminal branch contexts ------------------------------

func pBranchNameStr(pNt grammar.Nonterminal, indices []int) string {
	return fmt.Sprintf("%s@%s", pNt.Name(), joinInts(indices))
}

func (e *emitter) pBranchName(pNt grammar.Nonterminal, indices []int) (string, error) {
	name := pBranchNameStr(pNt, indices)
	return e.enqueue(name, "p-branch:"+pNt.Key()+":"+joinInts(indices), func() (Context, error) {
		return e.pBranchContext(pNt, indices)
	})
}

func (e *emitter) pBranchContext(pNt grammar.Nonterminal, indices []int) (Context, error) {
	var branches []string
	for _, i := range indices {
		itemName, err := e.pBranchItemName(pNt, indices, i)
		if err != nil {
			return nil, err
		}
		branches = append(branches, itemName)
	}
	branches = append(branches, "consume!")
	name := pBranchNameStr(pNt, indices)
	return Context{{Match: match(""), BranchPoint: name, Branch: branches}}, nil
}

func (e *emitter) pBranchItemName(pNt grammar.Nonterminal, indices []int, i int) (string, error) {
	branchName := pBranchNameStr(pNt, indices)
	name := fmt.Sprintf("%s!%d", branchName, i)
	return e.enqueue(name, fmt.Sprintf("p-item:%s:%d", branchName, i), func() (Context, error) {
		failName, err := e.pBranchFailName(pNt, indices)
		if err != nil {
			return nil, err
		}
		var follow []string
		if !e.skipFollow(pNt) {
			followName, err := e.followName(pNt)
			if err != nil {
				return nil, err
			}
			follow = []string{followName, "pop2!"}
		}
		npNt := grammar.NP(pNt).(grammar.Nonterminal)
		prodName, err := e.productionName(npNt, i)
		if err != nil {
			return nil, err
		}
		stack := append([]string{"pop3!", failName}, follow...)
		stack = append(stack, prodName)
		return Context{matchSet("", stack)}, nil
	})
}

func (e *emitter) pBranchFailName(pNt grammar.Nonterminal, indices []int) (string, error) {
	branchName := pBranchNameStr(pNt, indices)
	name := branchName + "@fail!"
	return e.enqueue(name, "p-fail:"+branchName, func() (Context, error) {
		return Context{{Match: match(""), Fail: branchName}}, nil
	})
}

// --- productions -------------------------------------------------------------

func (e *emitter) productionName(npNt grammar.Nonterminal, index int) (string, error) {
	alt, ok := e.g.Lookup(npNt)
	if !ok {
		return "", grammar.NewGrammarError("no such rule: %s", npNt.Name())
	}
	prod := alt.Productions[index]
	if len(prod.Concats) == 0 {
		return "pop2!", nil
	}
	name := fmt.Sprintf("%s|%d", npNt.Name(), index)
	return e.enqueue(name, fmt.Sprintf("prod:%s:%d", npNt.Key(), index), func() (Context, error) {
		stack, err := e.productionStack(prod)
		if err != nil {
			return nil, err
		}
		return Context{matchSet("", stack)}, nil
	})
}

// productionStack lays out a production's symbols as a stack-machine action
// list: a non-passive symbol contributes its entry name followed by
// "pop2!"; a passive symbol additionally pushes its preface gate followed
// by its own "pop2!", one pop frame per pushed context. Built right-to-left
// so the leftmost symbol ends up executing first; the final trailing
// "pop2!" is dropped since the production's own caller already arranges to
// clean up that frame.
func (e *emitter) productionStack(prod grammar.Concatenation) ([]string, error) {
	if len(prod.Concats) == 0 {
		return nil, grammar.NewInternalError("productionStack called on an empty production")
	}
	var stack []string
	for i := len(prod.Concats) - 1; i >= 0; i-- {
		sym := prod.Concats[i].(grammar.Symbol)
		name, err := e.symbolName(sym)
		if err != nil {
			return nil, err
		}
		stack = append(stack, name, "pop2!")
		if sym.IsPassive() {
			gateName, err := e.passivePrefaceName(sym)
			if err != nil {
				return nil, err
			}
			stack = append(stack, gateName, "pop2!")
		}
	}
	// Drop a trailing "pop2!": the final symbol's own cleanup frame, which
	// whichever context sets this production's stack already accounts for.
	// A passive final symbol's last two elements are its gate name and the
	// gate's own "pop2!"; dropping that trailing "pop2!" leaves the gate name
	// trailing instead, which is kept (its gate still needs to run for the
	// outermost occurrence).
	if len(stack) > 0 && stack[len(stack)-1] == "pop2!" {
		stack = stack[:len(stack)-1]
	}
	return stack, nil
}
