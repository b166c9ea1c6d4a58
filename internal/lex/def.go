// Package lex turns input text into a stream of typed, positioned tokens from a
// list of token definitions. Each definition maps a token name to a regular
// expression along with the modifiers that grammars can give to tokens.
package lex

import (
	"fmt"
	"strings"
)

// Def is the definition of a single token type.
type Def struct {
	// Name is the token type given to text matched by Pattern.
	Name string

	// Pattern is the regular expression that matches the token.
	Pattern string

	// Ignore is whether matched tokens are dropped from the stream. An
	// ignored token still updates line tracking if Newline is also set.
	Ignore bool

	// Newline is whether the token can contain newline characters. Only
	// tokens with Newline set advance the line counter.
	Newline bool

	// Unless lists alternate token types that a match of Pattern is given
	// instead of Name when the matched text fits them.
	Unless []Unless
}

// Unless is an alternate type for text matched by some other Def. If Pattern
// is a plain literal, it applies when the matched text is exactly equal to it;
// otherwise it applies when Pattern matches the whole matched text.
type Unless struct {
	Name    string
	Pattern string
}

// String shows the Def in grammar notation.
func (d Def) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: '%s'", d.Name, d.Pattern))
	if d.Ignore {
		sb.WriteString(" (%ignore)")
	}
	if d.Newline {
		sb.WriteString(" (%newline)")
	}
	if len(d.Unless) > 0 {
		sb.WriteString(" (%unless")
		for _, u := range d.Unless {
			sb.WriteString(fmt.Sprintf(" %s: '%s';", u.Name, u.Pattern))
		}
		sb.WriteString(")")
	}
	return sb.String()
}

const regexMeta = `.^$*+?()[]{}|`

// IsLiteral returns whether the pattern matches exactly one string, that is,
// it contains no regex operators other than escaped punctuation.
func IsLiteral(pattern string) bool {
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch == '\\' {
			if i+1 >= len(runes) {
				return false
			}
			next := runes[i+1]
			if isWordRune(next) {
				// \d, \w, \n and friends
				return false
			}
			i++
			continue
		}
		if strings.ContainsRune(regexMeta, ch) {
			return false
		}
	}
	return true
}

// Literal returns the single string a literal pattern matches. It must only be
// called on patterns for which IsLiteral returns true.
func Literal(pattern string) string {
	var sb strings.Builder
	escaped := false
	for _, ch := range pattern {
		if !escaped && ch == '\\' {
			escaped = true
			continue
		}
		escaped = false
		sb.WriteRune(ch)
	}
	return sb.String()
}

// isPlainWord reports whether s contains only word characters, slashes and
// dashes. Unless alternates that are plain words are looked up by exact text
// instead of being run as regexes.
func isPlainWord(s string) bool {
	for _, ch := range s {
		if !isWordRune(ch) && ch != '/' && ch != '-' {
			return false
		}
	}
	return true
}

func isWordRune(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch > 0x7f
}
