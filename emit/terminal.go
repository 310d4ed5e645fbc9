package emit

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

// terminalName is kind 7: a leaf Terminal's own matching context.
func (e *emitter) terminalName(t grammar.Terminal) (string, error) {
	name := t.Name()
	return e.enqueue(name, "term:"+t.Key(), func() (Context, error) {
		return e.terminalContext(t)
	})
}

func (e *emitter) terminalContext(t grammar.Terminal) (Context, error) {
	action := Action{Match: match(t.Regex)}

	if tags := t.OptionList(); len(tags) > 0 {
		action.Scope = e.scopeTags(tags)
	}
	if kv := t.OptionKV(); len(kv) > 0 {
		if captures := e.numberedCaptures(kv); len(captures) > 0 {
			action.Captures = captures
		}
	}

	switch {
	case t.Embed != nil:
		embedOpts, err := e.parseEmbedOptions(t.Embed.Opts)
		if err != nil {
			return nil, err
		}
		action.Embed = embedOpts.name
		action.Escape = t.Embed.Escape.Regex
		action.EmbedScope = embedOpts.scope
		if len(embedOpts.captures) > 0 {
			action.EscapeCaptures = embedOpts.captures
		}
		action.Pop = 2
	case t.Include != nil:
		includeName, err := e.nonterminalName(t.Include.Target)
		if err != nil {
			return nil, err
		}
		action.Set = []string{"pop2!", "pop1!", t.Include.Opts}
		action.WithPrototype = []Action{{Include: includeName}}
	default:
		action.Pop = 2
	}

	return Context{action, {Include: "fail!"}}, nil
}

func (e *emitter) scopeTags(tags []string) string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = e.scopeTag(tag)
	}
	return strings.Join(out, " ")
}

// embedOptions is an embed directive's comma-separated options string, split
// into its three possible parts.
type embedOptions struct {
	name     string
	scope    string
	captures map[int]string
}

// parseEmbedOptions pops the embed name off the front of an embed
// directive's options string, then treats a following bare token as
// embed_scope and any remaining "k:v" tokens as escape_captures.
func (e *emitter) parseEmbedOptions(opts string) (embedOptions, error) {
	parts := strings.Split(opts, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 0 || parts[0] == "" {
		return embedOptions{}, grammar.NewGrammarError("embed directive requires an embed name")
	}
	out := embedOptions{name: parts[0]}
	rest := parts[1:]
	if len(rest) > 0 && !strings.Contains(rest[0], ":") {
		out.scope = rest[0]
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return out, nil
	}
	captures := map[int]string{}
	for _, o := range rest {
		k, v, ok := strings.Cut(o, ":")
		if !ok {
			return embedOptions{}, grammar.NewGrammarError("bad embed capture group, expected <int>: <scope>, found %q", o)
		}
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return embedOptions{}, grammar.NewGrammarError("bad embed capture group, expected <int>: <scope>, found %q", o)
		}
		captures[n] = e.scopeTag(strings.TrimSpace(v))
	}
	out.captures = captures
	return out, nil
}

// numberedCaptures pulls the integer-keyed entries out of a terminal's
// key:value options, mapping sublime-syntax capture-group indices to scope
// names (e.g. "1: variable.function" -> captures[1] = "variable.function.<scope>").
func (e *emitter) numberedCaptures(kv map[string]string) map[int]string {
	out := map[int]string{}
	for k, v := range kv {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		out[n] = e.scopeTag(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// passivePrefaceName is kind 5: a one-line lookahead gate placed directly
// above a passive symbol's own entry on the production stack, so it runs
// first and pops itself (and the "pop2!" beneath it) only when the symbol's
// lookahead matches.
func (e *emitter) passivePrefaceName(sym grammar.Symbol) (string, error) {
	name := sym.Name() + "@pp!"
	return e.enqueue(name, "pp:"+symbolKey(sym), func() (Context, error) {
		regex, err := e.passiveGateRegex(sym)
		if err != nil {
			return nil, err
		}
		return Context{{Match: match("(?=" + regex + ")"), Pop: 2}}, nil
	})
}

func symbolKey(sym grammar.Symbol) string {
	switch v := sym.(type) {
	case grammar.Terminal:
		return v.Key()
	case grammar.Nonterminal:
		return v.Key()
	default:
		return sym.Name()
	}
}

// passiveGateRegex returns the disjunction of lookahead regexes a passive
// symbol might start with: the terminal's own pattern, or the union of its
// nonterminal rule's active and passive lane regexes.
func (e *emitter) passiveGateRegex(sym grammar.Symbol) (string, error) {
	switch v := sym.(type) {
	case grammar.Terminal:
		return v.Regex, nil
	case grammar.Nonterminal:
		seen := map[string]bool{}
		var parts []string
		for _, entry := range e.tables.NPTable(v) {
			if !seen[entry.Regex] {
				seen[entry.Regex] = true
				parts = append(parts, entry.Regex)
			}
		}
		for _, entry := range e.tables.PTable(v) {
			if !seen[entry.Regex] {
				seen[entry.Regex] = true
				parts = append(parts, entry.Regex)
			}
		}
		sort.Strings(parts)
		if len(parts) == 0 {
			return "", grammar.NewInternalError("passive nonterminal %s has an empty lookahead table", v.Name())
		}
		return "(?:" + strings.Join(parts, "|") + ")", nil
	default:
		return "", grammar.NewInternalError("passiveGateRegex: unexpected symbol type")
	}
}
