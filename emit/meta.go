package emit

import "github.com/nuchi/sublime-from-cfg/grammar"

// followName is kind 3: the follow-check context, consulted by a branch arm
// after its production has matched, to confirm the next token really is in
// FOLLOW(nt) before popping out cleanly.
func (e *emitter) followName(nt grammar.Nonterminal) (string, error) {
	name := nt.Name() + "@follow!"
	return e.enqueue(name, "follow:"+nt.Key(), func() (Context, error) {
		return e.followContext(nt)
	})
}

func (e *emitter) followContext(nt grammar.Nonterminal) (Context, error) {
	var ctx Context
	for _, t := range e.tables.Follow(nt) {
		if t.Passive {
			continue
		}
		ctx = append(ctx, matchPop("(?="+t.Regex+")", 2))
	}
	ctx = append(ctx, Action{Include: "fail!"})
	return ctx, nil
}

// skipFollow is true when FOLLOW(nt) is empty or contains a passive
// terminal, in which case arm stacks omit the follow-check/pop2! pair.
func (e *emitter) skipFollow(nt grammar.Nonterminal) bool {
	terms := e.tables.Follow(nt)
	if len(terms) == 0 {
		return true
	}
	for _, t := range terms {
		if t.Passive {
			return true
		}
	}
	return false
}

// metaWrapperName is kind 6 (the wrapper half): a nonterminal with
// meta-scope options is entered through this context, which in turn enters
// the meta-scope declaration context before the rule's own entry.
func (e *emitter) metaWrapperName(nt grammar.Nonterminal) (string, error) {
	name := nt.Name() + "@wrap_meta!"
	return e.enqueue(name, "wrap-meta:"+nt.Key(), func() (Context, error) {
		return e.metaWrapperContext(nt)
	})
}

func (e *emitter) metaWrapperContext(nt grammar.Nonterminal) (Context, error) {
	entryName, err := e.nonterminalName(nt)
	if err != nil {
		return nil, err
	}
	if !nt.Passive {
		metaName, err := e.metaName(nt)
		if err != nil {
			return nil, err
		}
		return Context{matchSet("", []string{metaName, "pop2!", entryName})}, nil
	}

	npNt := grammar.NP(nt).(grammar.Nonterminal)
	metaName, err := e.metaName(npNt)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var ctx Context
	for _, entry := range e.tables.NPTable(npNt) {
		if seen[entry.Regex] {
			continue
		}
		seen[entry.Regex] = true
		ctx = append(ctx, matchSet("(?="+entry.Regex+")", []string{metaName, "pop2!", entryName}))
	}
	for _, entry := range e.tables.PTable(npNt) {
		if seen[entry.Regex] {
			continue
		}
		seen[entry.Regex] = true
		ctx = append(ctx, matchSet("(?="+entry.Regex+")", []string{metaName, "pop2!", entryName}))
	}
	return ctx, nil
}

// metaName is kind 6 (the declaration half): a context whose sole purpose is
// declaring meta_scope for every character consumed while it (and whatever
// it wraps) is on the stack, then popping back out once that's done.
func (e *emitter) metaName(nt grammar.Nonterminal) (string, error) {
	name := nt.Name() + "@meta!"
	return e.enqueue(name, "meta:"+nt.Key(), func() (Context, error) {
		alt, ok := e.g.Lookup(nt)
		if !ok {
			return nil, grammar.NewGrammarError("no such rule: %s", nt.Name())
		}
		return Context{
			{MetaScope: e.scopeTags(alt.OptionList())},
			{Match: match(""), Pop: 2},
		}, nil
	})
}
