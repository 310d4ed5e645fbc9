package sgl

import (
	"strings"

	"github.com/nuchi/sublime-from-cfg/grammar"
)

// interpolate expands a string already rewritten by the scanner so that
// every bare brace is doubled and every original "#[name]" marker is a
// single "{name}" span (see rewriteInterpolation in scanner.go). "{{" and
// "}}" collapse to a literal brace; "{name}" is replaced by calling resolve.
// This is a narrow, Sublime-grammar-specific stand-in for Python's
// str.format_map, not a general template engine.
func interpolate(s string, resolve func(name string) (string, error)) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return "", grammar.NewGrammarError("unterminated interpolation in %q", s)
			}
			name := s[i+1 : i+1+end]
			val, err := resolve(name)
			if err != nil {
				return "", err
			}
			b.WriteString(val)
			i += 1 + end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", grammar.NewGrammarError("unmatched '}' in %q", s)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}
