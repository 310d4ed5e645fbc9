/*
Package token provides small span and token primitives shared by the SGL
scanner and parser.

Adapted from the teacher's root-package Span/Token types (gorgo.go): the
shape is unchanged (a token category, a lexeme, a span) but it is narrowed
down to what the SGL frontend needs for line-based error reporting, and
the category constants are SGL's own lexical classes rather than an
application-agnostic placeholder.
*/
package token

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident      // lowercase rule/variable reference: [a-z0-9\-\.]+
	UIdent     // uppercase variable reference: [A-Z0-9_\.]+
	Regex      // contents of a '...' span, escapes kept, #[name] rewritten to {name}
	Literal    // contents of a `...` span
	Options    // contents of a {...} span, escapes kept, #[name] rewritten to {name}
	RuleDef    // ':'
	RuleEnd    // ';'
	IdentDef   // '='
	Alt        // '|'
	Passive    // '~'
	Star       // '*'
	Question   // '?'
	LPar       // '('
	RPar       // ')'
	LBrack     // '['
	RBrack     // ']'
	Comma      // ','
	Perc       // '%'
	Empty      // '<>'
	Embed      // keyword 'embed'
	Include    // keyword 'include'
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "IDENT"
	case UIdent:
		return "U_IDENT"
	case Regex:
		return "REGEX"
	case Literal:
		return "LITERAL"
	case Options:
		return "OPTIONS"
	case RuleDef:
		return "RULE_DEF"
	case RuleEnd:
		return "RULE_END"
	case IdentDef:
		return "IDENT_DEF"
	case Alt:
		return "ALT"
	case Passive:
		return "PASSIVE"
	case Star:
		return "STAR"
	case Question:
		return "QUESTION"
	case LPar:
		return "LPAR"
	case RPar:
		return "RPAR"
	case LBrack:
		return "LBRACK"
	case RBrack:
		return "RBRACK"
	case Comma:
		return "COMMA"
	case Perc:
		return "PERC"
	case Empty:
		return "EMPTY"
	case Embed:
		return "EMBED"
	case Include:
		return "INCLUDE"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Span is a half-open range [From, To) of rune offsets into the source text.
type Span struct {
	From, To int
}

// Token is one lexical unit produced by the scanner.
type Token struct {
	Kind   Kind
	Lexeme string // the literal/regex/options text, with escapes kept as written
	Line   int    // 1-based line number of the token's first rune
	Span   Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Lexeme, t.Line)
}
