package emit

// Action is one entry in a context's action list. Most entries populate one
// of the "what to do" fields (Pop, Push, Set, BranchPoint+Branch, Fail,
// Include, Embed, MetaScope); an embed action also carries Pop, an include
// action pairs Set with WithPrototype, and the active-to-passive transition
// pairs Pop with Set. Match is present on every entry except a bare
// meta_scope/meta_include_prototype declaration, which is why it is a
// pointer: nil omits the field, a non-nil empty string serializes as the
// always-true match `''`.
type Action struct {
	Match   *string        `yaml:"match,omitempty"`
	Scope   string         `yaml:"scope,omitempty"`
	Captures map[int]string `yaml:"captures,omitempty"`

	MetaScope            string `yaml:"meta_scope,omitempty"`
	MetaIncludePrototype *bool  `yaml:"meta_include_prototype,omitempty"`

	Pop int      `yaml:"pop,omitempty"`
	Push []string `yaml:"push,omitempty"`
	Set  []string `yaml:"set,omitempty"`

	BranchPoint string   `yaml:"branch_point,omitempty"`
	Branch      []string `yaml:"branch,omitempty"`
	Fail        string   `yaml:"fail,omitempty"`

	Include       string   `yaml:"include,omitempty"`
	WithPrototype []Action `yaml:"with_prototype,omitempty"`

	Embed          string         `yaml:"embed,omitempty"`
	EmbedScope     string         `yaml:"embed_scope,omitempty"`
	Escape         string         `yaml:"escape,omitempty"`
	EscapeCaptures map[int]string `yaml:"escape_captures,omitempty"`
}

// Context is the ordered action list bound to one context name.
type Context []Action

func match(s string) *string { return &s }

func matchSet(re string, set []string) Action {
	return Action{Match: match(re), Set: set}
}

func matchPop(re string, n int) Action {
	return Action{Match: match(re), Pop: n}
}

// Output is the emitter's result: an ordered name->Context map, ready for the
// serializer. Insertion order is the fixed utility contexts and "main" first,
// then every other context in the order the worklist builds it (the worklist
// is drained last-in, first-out).
type Output struct {
	names    []string
	contexts map[string]Context
}

// Names returns context names in emission order.
func (o *Output) Names() []string { return o.names }

// Context returns the body for a given context name.
func (o *Output) Context(name string) (Context, bool) {
	c, ok := o.contexts[name]
	return c, ok
}

func newOutput() *Output {
	return &Output{contexts: map[string]Context{}}
}

func (o *Output) set(name string, ctx Context) {
	if _, exists := o.contexts[name]; !exists {
		o.names = append(o.names, name)
	}
	o.contexts[name] = ctx
}
