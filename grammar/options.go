package grammar

import "strings"

// SyntaxOptions carries the handful of recognized upper-case SGL variables
// that configure the emitted syntax definition's header, rather than its
// grammar: display name, file extensions, first-line-match regex, editor
// scope, scope postfix, and the hidden flag.
type SyntaxOptions struct {
	Name         string
	Extensions   string // space-separated, as written in SGL
	FirstLine    string
	Scope        string
	ScopePostfix *string // nil means "use the default"; "" means "no postfix"
	Hidden       string  // "true" to hide; anything else (including empty) is visible
}

// ExtensionList splits Extensions on spaces, or returns nil if unset.
func (o SyntaxOptions) ExtensionList() []string {
	if o.Extensions == "" {
		return nil
	}
	return strings.Fields(o.Extensions)
}

// ResolvedScope returns the explicit Scope, or "source.<lowercased name>" if
// unset.
func (o SyntaxOptions) ResolvedScope() string {
	if o.Scope != "" {
		return o.Scope
	}
	return "source." + strings.ToLower(o.Name)
}

// ResolvedScopePostfix returns the dotted postfix appended to every scope
// name the emitter writes: "." + lowercased name by default, the explicit
// ScopePostfix if one was given (including the empty string, meaning "no
// postfix at all").
func (o SyntaxOptions) ResolvedScopePostfix() string {
	if o.ScopePostfix == nil {
		return "." + strings.ToLower(o.Name)
	}
	if *o.ScopePostfix == "" {
		return ""
	}
	return "." + *o.ScopePostfix
}

// IsHidden reports whether the Hidden variable was set to "true".
func (o SyntaxOptions) IsHidden() bool {
	return o.Hidden == "true"
}
