// Package serialize renders an emit.Output to the sublime-syntax YAML
// format: a document with name/file_extensions/first_line_match/scope/
// hidden header fields followed by a "contexts" mapping, one entry per
// named context.
//
// Grounded on original_source/sublime_generator.py's L() helper (a
// ruamel_yaml CommentedSeq forced into flow style): a "push"/"set"/"branch"
// action field with exactly one entry there serializes as a bare scalar
// rather than a one-element sequence, and with more than one entry as an
// inline flow sequence. gopkg.in/yaml.v3 has no equivalent knob on a plain
// []string field, so those three fields are rendered through a small
// yaml.Node helper instead of relying on struct tags.
package serialize

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nuchi/sublime-from-cfg/emit"
	"github.com/nuchi/sublime-from-cfg/grammar"
)

// Marshal renders out and opts as a complete sublime-syntax YAML document.
func Marshal(out *emit.Output, opts grammar.SyntaxOptions) ([]byte, error) {
	doc := docNode(out, opts)
	return yaml.Marshal(doc)
}

func docNode(out *emit.Output, opts grammar.SyntaxOptions) *yaml.Node {
	m := newMapping()
	m.Content = append(m.Content,
		scalar(optVersionKey), scalar("2"),
		scalar(optNameKey), scalar(opts.Name),
	)
	if exts := opts.ExtensionList(); len(exts) > 0 {
		m.Content = append(m.Content, scalar(optExtensionsKey), stringListNode(exts))
	}
	if opts.FirstLine != "" {
		m.Content = append(m.Content, scalar(optFirstLineKey), scalar(opts.FirstLine))
	}
	m.Content = append(m.Content, scalar(optScopeKey), scalar(opts.ResolvedScope()))
	if opts.IsHidden() {
		m.Content = append(m.Content, scalar(optHiddenKey), boolScalar(true))
	}
	m.Content = append(m.Content, scalar(optContextsKey), contextsNode(out))
	return m
}

const (
	optVersionKey    = "version"
	optNameKey       = "name"
	optExtensionsKey = "file_extensions"
	optFirstLineKey  = "first_line_match"
	optScopeKey      = "scope"
	optHiddenKey     = "hidden"
	optContextsKey   = "contexts"
)

func contextsNode(out *emit.Output) *yaml.Node {
	m := newMapping()
	for _, name := range out.Names() {
		ctx, _ := out.Context(name)
		m.Content = append(m.Content, scalar(name), contextNode(ctx))
	}
	return m
}

func contextNode(ctx emit.Context) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, a := range ctx {
		seq.Content = append(seq.Content, actionNode(a))
	}
	return seq
}

func actionNode(a emit.Action) *yaml.Node {
	m := newMapping()
	put := func(k string, v *yaml.Node) {
		if v == nil {
			return
		}
		m.Content = append(m.Content, scalar(k), v)
	}

	if a.Match != nil {
		put("match", scalar(*a.Match))
	}
	put("scope", nonEmptyScalar(a.Scope))
	put("captures", capturesNode(a.Captures))

	put("meta_scope", nonEmptyScalar(a.MetaScope))
	if a.MetaIncludePrototype != nil {
		put("meta_include_prototype", boolScalar(*a.MetaIncludePrototype))
	}

	if a.Pop != 0 {
		put("pop", intScalar(a.Pop))
	}
	put("push", stringListNode(a.Push))
	put("set", stringListNode(a.Set))

	put("branch_point", nonEmptyScalar(a.BranchPoint))
	put("branch", stringListNode(a.Branch))
	put("fail", nonEmptyScalar(a.Fail))

	put("include", nonEmptyScalar(a.Include))
	if len(a.WithPrototype) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, wp := range a.WithPrototype {
			seq.Content = append(seq.Content, actionNode(wp))
		}
		put("with_prototype", seq)
	}

	put("embed", nonEmptyScalar(a.Embed))
	put("embed_scope", nonEmptyScalar(a.EmbedScope))
	put("escape", nonEmptyScalar(a.Escape))
	put("escape_captures", capturesNode(a.EscapeCaptures))

	return m
}

func capturesNode(captures map[int]string) *yaml.Node {
	if len(captures) == 0 {
		return nil
	}
	keys := make([]int, 0, len(captures))
	for k := range captures {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	m := newMapping()
	for _, k := range keys {
		m.Content = append(m.Content, intScalar(k), scalar(captures[k]))
	}
	return m
}

// stringListNode renders a list of context names the way L() does in the
// original: a single entry collapses to a bare scalar, more than one becomes
// an inline flow sequence. An empty list renders as nothing (the caller's
// put skips a nil node).
func stringListNode(items []string) *yaml.Node {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return scalar(items[0])
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, it := range items {
		seq.Content = append(seq.Content, scalar(it))
	}
	return seq
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

func nonEmptyScalar(s string) *yaml.Node {
	if s == "" {
		return nil
	}
	return scalar(s)
}

func intScalar(n int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}
}

func boolScalar(b bool) *yaml.Node {
	v := "false"
	if b {
		v = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}
}
