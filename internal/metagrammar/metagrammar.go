// Package metagrammar parses grammar source text into a tree.
//
// The notation is parsed with a fixed grammar compiled by the lr package the
// first time it is needed. The result is a tree rooted at "extgrammar" whose
// grammar node holds one child per definition: "ruledef", "tokendef",
// "optiondef" or "fragmentdef". Leaves are the tokens of the source, so they
// carry the line and column they were found at.
package metagrammar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dekarrin/plyfin/internal/lex"
	"github.com/dekarrin/plyfin/internal/lr"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

type builder func(st *parseState, c []any) any

type production struct {
	name  string
	syms  []string
	build builder
}

// node wraps every child in a new tree with the given head.
func node(head string) builder {
	return func(_ *parseState, c []any) any {
		return stree.New(head, nodes(c)...)
	}
}

// pick wraps only the children at the given indices.
func pick(head string, indices ...int) builder {
	return func(_ *parseState, c []any) any {
		sel := make([]any, len(indices))
		for i, idx := range indices {
			sel[i] = c[idx]
		}
		return stree.New(head, nodes(sel)...)
	}
}

// appendTo adds the child at index i to the list tree built for the first
// child.
func appendTo(i int) builder {
	return func(_ *parseState, c []any) any {
		list := c[0].(*stree.Tree)
		list.Tail = append(list.Tail, c[i].(stree.Node))
		return list
	}
}

func pass(i int) builder {
	return func(_ *parseState, c []any) any {
		return c[i]
	}
}

func nodes(c []any) []stree.Node {
	out := make([]stree.Node, len(c))
	for i := range c {
		out[i] = c[i].(stree.Node)
	}
	return out
}

var productions = []production{
	{"extgrammar", []string{"grammar"}, node("extgrammar")},
	{"extgrammar", []string{"grammar", TSection}, node("extgrammar")},

	{"grammar", []string{"def"}, node("grammar")},
	{"grammar", []string{"grammar", "def"}, appendTo(1)},

	{"def", []string{"ruledef"}, pass(0)},
	{"def", []string{"tokendef"}, pass(0)},
	{"def", []string{"optiondef"}, pass(0)},

	{"tokendef", []string{TToken, TColon, "tokenvalue", TSemicolon}, pick("tokendef", 0, 2)},
	{"tokendef", []string{TToken, TColon, "tokenvalue", "tokenmods", TSemicolon}, pick("tokendef", 0, 2, 3)},
	{"tokendef", []string{TToken, TColon, "tokenvalue", "subgrammar", TSemicolon}, pick("tokendef", 0, 2, 3)},

	{"tokenvalue", []string{TRegexp}, node("tokenvalue")},
	{"tokenvalue", []string{TToken}, node("tokenvalue")},
	{"tokenvalue", []string{"tokenvalue", TRegexp}, appendTo(1)},
	{"tokenvalue", []string{"tokenvalue", TToken}, appendTo(1)},

	{"tokenmods", []string{"tokenmod"}, node("tokenmods")},
	{"tokenmods", []string{"tokenmods", "tokenmod"}, appendTo(1)},

	{"tokenmod", []string{TLPar, TOption, TRPar}, func(_ *parseState, c []any) any {
		return stree.New("tokenmod", c[1].(stree.Token), stree.New("modtokenlist"))
	}},
	{"tokenmod", []string{TLPar, TOption, "modtokenlist", TRPar}, pick("tokenmod", 1, 2)},
	{"tokenmod", []string{TLPar, TOption, TLCurly, "modtokenlist", TRCurly, TRPar}, pick("tokenmod", 1, 3)},

	{"modtokenlist", []string{"tokendef"}, node("modtokenlist")},
	{"modtokenlist", []string{"modtokenlist", "tokendef"}, appendTo(1)},

	{"subgrammar", []string{TLCurly, "extgrammar", TRCurly}, pick("subgrammar", 1)},

	{"ruledef", []string{TRuleName, TColon, "rules_list", TSemicolon}, pick("ruledef", 0, 2)},

	{"optiondef", []string{TOption, TColon, TRegexp, TSemicolon}, pick("optiondef", 0, 2)},
	{"optiondef", []string{TOption, TColon, TToken, TSemicolon}, pick("optiondef", 0, 2)},
	{"optiondef", []string{TOption, TColon, TRuleName, TSemicolon}, pick("optiondef", 0, 2)},
	{"optiondef", []string{TOption, TToken, TColon, "tokenvalue", TSemicolon}, func(st *parseState, c []any) any {
		opt := c[0].(stree.Token)
		if opt.Value != "%fragment" {
			st.fail(opt, "only %%fragment can name a token, not %s", opt.Value)
		}
		return stree.New("fragmentdef", c[1].(stree.Token), c[3].(*stree.Tree))
	}},

	{"rules_list", []string{"production"}, node("rules_list")},
	{"rules_list", []string{"rules_list", TOr, "production"}, appendTo(2)},

	{"production", []string{"rule"}, pass(0)},
	{"production", []string{"perm_rule"}, pass(0)},

	{"perm_rule", []string{"perm_phrase"}, node("perm_rule")},
	{"perm_rule", []string{"perm_phrase", TPermSep, "rule"}, pick("perm_rule", 0, 2)},

	{"perm_phrase", []string{"rule", TPerm, "rule"}, pick("perm_phrase", 0, 2)},
	{"perm_phrase", []string{"perm_phrase", TPerm, "rule"}, appendTo(2)},

	{"rule", []string{"seq"}, pass(0)},
	{"rule", nil, node("rule")},

	{"seq", []string{"expr"}, node("rule")},
	{"seq", []string{"seq", "expr"}, appendTo(1)},

	{"expr", []string{TRuleName}, pass(0)},
	{"expr", []string{TToken}, pass(0)},
	{"expr", []string{TRegexp}, pass(0)},
	{"expr", []string{"oper"}, pass(0)},
	{"expr", []string{TLPar, "rules_list", TRPar}, pass(1)},

	{"oper", []string{"expr", TOper}, node("oper")},
}

type bootstrapped struct {
	lexer    *lex.Lexer
	table    *lr.Table
	builders map[string]builder
}

var (
	bootOnce sync.Once
	boot     bootstrapped
)

// load builds the meta lexer and table. The meta grammar is fixed, so a
// failure here is a bug and panics.
func load() bootstrapped {
	bootOnce.Do(func() {
		lx, err := lex.New(lexDefs, "")
		if err != nil {
			panic(fmt.Sprintf("meta lexer: %s", err))
		}

		g := lr.Grammar{Start: "extgrammar"}
		builders := map[string]builder{}
		for _, p := range productions {
			r := lr.Rule{Name: p.name, Symbols: p.syms}
			g.Rules = append(g.Rules, r)
			builders[r.String()] = p.build
		}

		table, err := lr.Build(g)
		if err != nil {
			panic(fmt.Sprintf("meta grammar: %s", err))
		}

		boot = bootstrapped{lexer: lx, table: table, builders: builders}
	})
	return boot
}

type parseState struct {
	builders map[string]builder
	err      *plyerr.GrammarError
}

func (st *parseState) fail(at stree.Token, format string, a ...interface{}) {
	if st.err == nil {
		st.err = plyerr.GrammarAt(at.Line, at.Column, format, a...)
	}
}

func (st *parseState) reduce(rule lr.Rule, children []any) any {
	return st.builders[rule.String()](st, children)
}

// Parse parses grammar source into a tree rooted at "extgrammar". Any failure
// is returned as a *plyerr.GrammarError located at the offending token.
func Parse(src string) (*stree.Tree, error) {
	b := load()
	st := &parseState{builders: b.builders}

	result, err := lr.NewParser(b.table).Parse(b.lexer.Lex(src), st.reduce)
	if err != nil {
		var tokErr *plyerr.TokenizeError
		var parseErr *plyerr.ParseError
		if errors.As(err, &tokErr) {
			return nil, plyerr.WrapGrammarAt(err, tokErr.Line, tokErr.Column, "illegal character %q in grammar", tokErr.Char)
		} else if errors.As(err, &parseErr) {
			first := parseErr.First()
			if first.AtEnd {
				return nil, plyerr.WrapGrammar(err, "unexpected end of grammar")
			}
			tok := first.Token
			return nil, plyerr.WrapGrammarAt(err, tok.Line, tok.Column, "syntax error in grammar at '%s' (type %s)", tok.Value, tok.Type)
		}
		return nil, plyerr.WrapGrammar(err, "reading grammar")
	}
	if st.err != nil {
		return nil, st.err
	}

	return result.(*stree.Tree), nil
}

// TableString returns the rendered table of the meta grammar.
func TableString() string {
	return load().table.String()
}
