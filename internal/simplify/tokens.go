package simplify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dekarrin/plyfin/internal/lex"
	"github.com/dekarrin/plyfin/internal/metagrammar"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

// tPattern is the type of the leaf that holds a token's resolved pattern once
// its tokenvalue has been composed.
const tPattern = "PATTERN"

// tokenMnemonics names the anonymous tokens made for common punctuation.
var tokenMnemonics = map[string]string{
	":":  "COLON",
	",":  "COMMA",
	";":  "SEMICOLON",
	"+":  "PLUS",
	"-":  "MINUS",
	"*":  "STAR",
	"/":  "SLASH",
	"|":  "VBAR",
	"!":  "BANG",
	"?":  "QMARK",
	"#":  "HASH",
	"$":  "DOLLAR",
	"&":  "AMPERSAND",
	"<":  "LESSTHAN",
	">":  "MORETHAN",
	"=":  "EQUAL",
	".":  "DOT",
	"%":  "PERCENT",
	"`":  "BACKQUOTE",
	"^":  "CIRCUMFLEX",
	"\"": "DBLQUOTE",
	"'":  "QUOTE",
	"~":  "TILDE",
	"@":  "AT",
	"(":  "LPAR",
	")":  "RPAR",
	"{":  "LBRACE",
	"}":  "RBRACE",
	"[":  "LSQB",
	"]":  "RSQB",
}

// unquote gives the pattern held by a quoted literal of grammar source.
func unquote(quoted string) string {
	if len(quoted) >= 2 && quoted[0] == '\'' && quoted[len(quoted)-1] == '\'' {
		quoted = quoted[1 : len(quoted)-1]
	}
	return strings.ReplaceAll(quoted, `\'`, `'`)
}

// unquoteValue interprets the escapes in a quoted option value, so that '\n'
// is a single newline character.
func unquoteValue(quoted string) (string, error) {
	inner := unquote(quoted)
	inner = strings.ReplaceAll(inner, `"`, `\"`)
	return strconv.Unquote(`"` + inner + `"`)
}

// composer resolves token values made of several parts into one pattern.
type composer struct {
	defs     map[string]*stree.Tree
	resolved map[string]string
	active   map[string]bool
	chain    []string
}

// composeTokens replaces the tokenvalue of every token and fragment definition
// outside of nested grammars with a single pattern leaf.
func composeTokens(ext *stree.Tree) error {
	c := &composer{
		defs:     map[string]*stree.Tree{},
		resolved: map[string]string{},
		active:   map[string]bool{},
	}

	var order []*stree.Tree
	for _, def := range tokenDefsOf(ext) {
		c.defs[def.Tail[0].(stree.Token).Value] = def
		order = append(order, def)
	}

	for _, def := range order {
		name := def.Tail[0].(stree.Token)
		pattern, err := c.resolve(name.Value)
		if err != nil {
			return err
		}
		def.Tail[1] = stree.Token{Type: tPattern, Value: pattern, Line: name.Line, Column: name.Column, Pos: name.Pos}
	}
	return nil
}

func (c *composer) resolve(name string) (string, error) {
	if p, ok := c.resolved[name]; ok {
		return p, nil
	}
	if c.active[name] {
		cycle := append(append([]string{}, c.chain...), name)
		return "", plyerr.GrammarSymbols("token value refers to itself", cycle...)
	}

	def := c.defs[name]
	value, ok := def.Tail[1].(*stree.Tree)
	if !ok {
		// already composed
		return def.Tail[1].(stree.Token).Value, nil
	}

	c.active[name] = true
	c.chain = append(c.chain, name)
	var sb strings.Builder
	for _, part := range value.Tail {
		leaf := part.(stree.Token)
		if leaf.Type == metagrammar.TRegexp {
			sb.WriteString(unquote(leaf.Value))
			continue
		}
		p, err := c.resolve(leaf.Value)
		if err != nil {
			return "", err
		}
		sb.WriteString(p)
	}
	c.chain = c.chain[:len(c.chain)-1]
	c.active[name] = false

	c.resolved[name] = sb.String()
	return c.resolved[name], nil
}

// tokenDefsOf returns every tokendef and fragmentdef of the grammar in
// definition order, including the alternates declared by %unless. Nested
// grammars are not searched.
func tokenDefsOf(ext *stree.Tree) []*stree.Tree {
	var defs []*stree.Tree
	var walk func(t *stree.Tree)
	walk = func(t *stree.Tree) {
		for _, n := range t.Tail {
			sub, ok := n.(*stree.Tree)
			if !ok {
				continue
			}
			switch sub.Head {
			case hTokenDef, hFragmentDef:
				defs = append(defs, sub)
				walk(sub)
			case hTokenMods, hTokenMod, hModTokens:
				walk(sub)
			}
		}
	}
	walk(ext.Tail[0].(*stree.Tree))
	return defs
}

// anonNamer gives names to the quoted literals written directly in rules.
type anonNamer struct {
	byPattern map[string]string
	count     int
	pending   []stree.Node
}

// nameAnonymousTokens replaces every quoted literal in a rule with the name of
// a token that has the same pattern, defining a new token when there is no
// such token yet. Fragments are never reused this way since they are not
// lexed.
func nameAnonymousTokens(ext *stree.Tree) {
	an := &anonNamer{byPattern: map[string]string{}}
	for _, def := range tokenDefsOf(ext) {
		if def.Head != hTokenDef {
			continue
		}
		pattern := def.Tail[1].(stree.Token).Value
		if _, ok := an.byPattern[pattern]; !ok {
			an.byPattern[pattern] = def.Tail[0].(stree.Token).Value
		}
	}

	stree.NewVisitor().
		On(hRule, an.rule).
		On(hGrammar, an.grammar).
		Visit(ext)
}

func (an *anonNamer) newName(pattern string) string {
	mnemonic := "ANON"
	if lex.IsLiteral(pattern) {
		if m, ok := tokenMnemonics[lex.Literal(pattern)]; ok {
			mnemonic = m
		}
	}
	name := fmt.Sprintf("_%s_%d", mnemonic, an.count)
	an.count++
	return name
}

func (an *anonNamer) rule(t *stree.Tree) bool {
	changed := false
	for i := range t.Tail {
		leaf, ok := t.Tail[i].(stree.Token)
		if !ok || leaf.Type != metagrammar.TRegexp {
			continue
		}

		pattern := unquote(leaf.Value)
		name, ok := an.byPattern[pattern]
		if !ok {
			name = an.newName(pattern)
			an.byPattern[pattern] = name
			an.pending = append(an.pending, stree.New(hAnonTokenDef,
				stree.Token{Type: metagrammar.TToken, Value: name, Line: leaf.Line, Column: leaf.Column, Pos: leaf.Pos},
				stree.Token{Type: tPattern, Value: pattern, Line: leaf.Line, Column: leaf.Column, Pos: leaf.Pos},
			))
		}

		leaf.Type = metagrammar.TToken
		leaf.Value = name
		t.Tail[i] = leaf
		changed = true
	}
	return changed
}

func (an *anonNamer) grammar(t *stree.Tree) bool {
	if len(an.pending) == 0 {
		return false
	}
	t.Tail = append(t.Tail, an.pending...)
	an.pending = nil
	return true
}
