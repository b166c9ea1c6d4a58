// Package simplify turns the tree of a parsed grammar into a flat list of
// definitions that a lexer and an LR table can be built from.
//
// Rewriting happens in passes over the tree: references are verified, nested
// grammars are split off, groups and operators are desugared into plain
// alternatives of plain rules, composed tokens are resolved into single
// patterns and quoted literals in rules are promoted to named tokens. The last
// pass lowers the tree into Def values.
package simplify

import (
	"fmt"
	"strings"

	"github.com/dekarrin/plyfin/internal/lex"
)

// Option names understood in grammar source.
const (
	OptNewlineChar = "newline_char"
)

// Def is one definition of a simplified grammar. It is always one of RuleDef,
// TokenDef, OptionDef or FragmentDef.
type Def interface {
	// DefName is the name of the thing being defined.
	DefName() string
	def()
}

// RuleDef is a rule whose alternatives are plain sequences of rule and token
// names. An empty alternative matches nothing.
type RuleDef struct {
	Name         string
	Alternatives [][]string

	// Expand is set for rules prefixed with '@'. Trees of the rule are always
	// spliced into their parent.
	Expand bool

	// Flatten is set for rules prefixed with '#'. Trees of the rule are
	// spliced into a parent of the same rule.
	Flatten bool

	// Expand1 is set for rules prefixed with '?'. A tree of the rule with a
	// single child is replaced by that child.
	Expand1 bool
}

func (r RuleDef) DefName() string { return r.Name }
func (r RuleDef) def()            {}

// SelfExpands returns whether a tree of the rule that ends up with only one
// child is replaced by that child.
func (r RuleDef) SelfExpands() bool {
	return r.Expand || r.Expand1
}

func (r RuleDef) String() string {
	prefix := ""
	if r.Expand {
		prefix += "@"
	}
	if r.Flatten {
		prefix += "#"
	}
	if r.Expand1 {
		prefix += "?"
	}

	alts := make([]string, len(r.Alternatives))
	for i := range r.Alternatives {
		alts[i] = strings.Join(r.Alternatives[i], " ")
	}
	return fmt.Sprintf("%s%s: %s;", prefix, r.Name, strings.Join(alts, " | "))
}

// TokenDef is a token with its pattern fully resolved.
type TokenDef struct {
	Name    string
	Pattern string
	Ignore  bool
	Newline bool
	Unless  []lex.Unless

	// Anonymous is set for tokens made from quoted literals in rules.
	Anonymous bool

	// Subgrammar, if not nil, is the grammar that text matched by the token
	// is parsed with.
	Subgrammar *Grammar
}

func (t TokenDef) DefName() string { return t.Name }
func (t TokenDef) def()            {}

// LexDef gives the definition the lexer needs for the token.
func (t TokenDef) LexDef() lex.Def {
	return lex.Def{
		Name:    t.Name,
		Pattern: t.Pattern,
		Ignore:  t.Ignore,
		Newline: t.Newline,
		Unless:  t.Unless,
	}
}

// OptionDef is a grammar option. Name has no leading '%' and Value has been
// unquoted.
type OptionDef struct {
	Name  string
	Value string
}

func (o OptionDef) DefName() string { return o.Name }
func (o OptionDef) def()            {}

// FragmentDef is a named pattern usable only inside other token values.
type FragmentDef struct {
	Name    string
	Pattern string
}

func (f FragmentDef) DefName() string { return f.Name }
func (f FragmentDef) def()            {}

// Grammar is the result of simplifying a grammar tree.
type Grammar struct {
	Defs []Def

	// Section is the raw text of a trailing ### section, if there was one.
	Section string
}

// Rules returns the rule definitions in order.
func (g *Grammar) Rules() []RuleDef {
	var rules []RuleDef
	for _, d := range g.Defs {
		if r, ok := d.(RuleDef); ok {
			rules = append(rules, r)
		}
	}
	return rules
}

// Tokens returns the token definitions in order. Fragments are not included.
func (g *Grammar) Tokens() []TokenDef {
	var toks []TokenDef
	for _, d := range g.Defs {
		if t, ok := d.(TokenDef); ok {
			toks = append(toks, t)
		}
	}
	return toks
}

// Option returns the value of the named option, if the grammar sets it.
func (g *Grammar) Option(name string) (string, bool) {
	for _, d := range g.Defs {
		if o, ok := d.(OptionDef); ok && o.Name == name {
			return o.Value, true
		}
	}
	return "", false
}

// NewlineChar is the value of the newline_char option, or lex.DefaultNewline.
func (g *Grammar) NewlineChar() string {
	if v, ok := g.Option(OptNewlineChar); ok && v != "" {
		return v
	}
	return lex.DefaultNewline
}

func (g *Grammar) String() string {
	var sb strings.Builder
	for _, d := range g.Defs {
		switch d := d.(type) {
		case RuleDef:
			sb.WriteString(d.String())
		case TokenDef:
			sb.WriteString(d.LexDef().String())
			sb.WriteRune(';')
		case OptionDef:
			sb.WriteString(fmt.Sprintf("%%%s: %q;", d.Name, d.Value))
		case FragmentDef:
			sb.WriteString(fmt.Sprintf("%%fragment %s: '%s';", d.Name, d.Pattern))
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
