package metagrammar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

func Test_Parse(t *testing.T) {
	testCases := []struct {
		name   string
		src    string
		expect string
	}{
		{
			name:   "alternatives",
			src:    `start: a b | C;`,
			expect: `extgrammar(grammar(ruledef("start", rules_list(rule("a", "b"), rule("C")))))`,
		},
		{
			name:   "operators",
			src:    `start: a+ 'x'? b+?;`,
			expect: `extgrammar(grammar(ruledef("start", rules_list(rule(oper("a", "+"), oper("'x'", "?"), oper(oper("b", "+"), "?"))))))`,
		},
		{
			name:   "group",
			src:    `start: (a | b) c;`,
			expect: `extgrammar(grammar(ruledef("start", rules_list(rule(rules_list(rule("a"), rule("b")), "c")))))`,
		},
		{
			name:   "empty alternative",
			src:    `start: a | ;`,
			expect: `extgrammar(grammar(ruledef("start", rules_list(rule("a"), rule()))))`,
		},
		{
			name:   "permutation with separator",
			src:    `start: a ^ b c ^^ SEP;`,
			expect: `extgrammar(grammar(ruledef("start", rules_list(perm_rule(perm_phrase(rule("a"), rule("b", "c")), rule("SEP"))))))`,
		},
		{
			name:   "modifier prefixes",
			src:    `@a: B; #b: C; ?c: D;`,
			expect: `extgrammar(grammar(ruledef("@a", rules_list(rule("B"))), ruledef("#b", rules_list(rule("C"))), ruledef("?c", rules_list(rule("D")))))`,
		},
		{
			name:   "token with modifier",
			src:    `WS: '[ ]+' (%ignore);`,
			expect: `extgrammar(grammar(tokendef("WS", tokenvalue("'[ ]+'"), tokenmods(tokenmod("%ignore", modtokenlist())))))`,
		},
		{
			name:   "unless",
			src:    `NAME: '[a-z]+' (%unless IF: 'if'; ELSE: 'else';) (%newline);`,
			expect: `extgrammar(grammar(tokendef("NAME", tokenvalue("'[a-z]+'"), tokenmods(tokenmod("%unless", modtokenlist(tokendef("IF", tokenvalue("'if'")), tokendef("ELSE", tokenvalue("'else'")))), tokenmod("%newline", modtokenlist())))))`,
		},
		{
			name:   "unless in braces",
			src:    `NAME: '[a-z]+' (%unless { IF: 'if'; });`,
			expect: `extgrammar(grammar(tokendef("NAME", tokenvalue("'[a-z]+'"), tokenmods(tokenmod("%unless", modtokenlist(tokendef("IF", tokenvalue("'if'"))))))))`,
		},
		{
			name:   "composed token",
			src:    `NUM: INT '\.' FRAC;`,
			expect: `extgrammar(grammar(tokendef("NUM", tokenvalue("INT", "'\\.'", "FRAC"))))`,
		},
		{
			name:   "subgrammar",
			src:    `S: '"[^"]*"' { start: A; A: 'a'; };`,
			expect: `extgrammar(grammar(tokendef("S", tokenvalue("'\"[^\"]*\"'"), subgrammar(extgrammar(grammar(ruledef("start", rules_list(rule("A"))), tokendef("A", tokenvalue("'a'"))))))))`,
		},
		{
			name:   "options and fragments",
			src:    `%newline_char: '\n'; %fragment DIGIT: '[0-9]';`,
			expect: `extgrammar(grammar(optiondef("%newline_char", "'\\n'"), fragmentdef("DIGIT", tokenvalue("'[0-9]'"))))`,
		},
		{
			name:   "section and comments",
			src:    "// line comment\nstart: A; /* block\ncomment */ A: 'a';\n### free text\nmore",
			expect: `extgrammar(grammar(ruledef("start", rules_list(rule("A"))), tokendef("A", tokenvalue("'a'"))), "### free text\nmore")`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := Parse(tc.src)

			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual.Compact())
		})
	}
}

func Test_Parse_tokenPositions(t *testing.T) {
	assert := assert.New(t)

	tree, err := Parse("start: a;\n\n  a: B;")

	if !assert.NoError(err) {
		return
	}
	defs := tree.Tail[0].(*stree.Tree).Tail
	name := defs[1].(*stree.Tree).Tail[0].(stree.Token)
	assert.Equal("a", name.Value)
	assert.Equal(3, name.Line)
	assert.Equal(3, name.Column)
}

func Test_Parse_errors(t *testing.T) {
	testCases := []struct {
		name      string
		src       string
		expectMsg string
		line      int
		col       int
	}{
		{
			name:      "missing colon",
			src:       "start a;",
			expectMsg: "syntax error in grammar at 'a' (type RULENAME)",
			line:      1,
			col:       7,
		},
		{
			name:      "error on later line",
			src:       "start: a;\nb: c\nd: e;",
			expectMsg: "syntax error in grammar at ':' (type COLON)",
			line:      3,
			col:       2,
		},
		{
			name:      "illegal character",
			src:       "start: a $;",
			expectMsg: "illegal character '$' in grammar",
			line:      1,
			col:       10,
		},
		{
			name:      "unexpected end",
			src:       "start: a",
			expectMsg: "unexpected end of grammar",
		},
		{
			name:      "named option other than fragment",
			src:       "%thing X: 'x';",
			expectMsg: "only %fragment can name a token, not %thing",
			line:      1,
			col:       1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := Parse(tc.src)

			var gErr *plyerr.GrammarError
			if !assert.True(errors.As(err, &gErr), "error was: %v", err) {
				return
			}
			assert.Equal(tc.expectMsg, gErr.Msg)
			assert.Equal(tc.line, gErr.Line)
			assert.Equal(tc.col, gErr.Column)
		})
	}
}

func Test_metaTable_hasNoConflicts(t *testing.T) {
	assert := assert.New(t)

	b := load()

	assert.Empty(b.table.Warnings())
	assert.NotEmpty(TableString())
}
