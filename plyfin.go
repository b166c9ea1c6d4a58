// Package plyfin compiles grammars written in an extended BNF notation into
// parsers that turn text into trees.
//
// A grammar defines rules in lowercase and tokens in uppercase:
//
//	start: expr;
//	@expr: expr '\+' term | term;
//	?term: NUMBER | '\(' expr '\)';
//	NUMBER: '[0-9]+';
//	WS: '[ ]+' (%ignore);
//
// Rules may use groups, the operators *, + and ?, and the permutation
// operators ^ and ^^. Quoted patterns written directly in a rule become
// tokens of their own. A rule name prefixed with '@' is always expanded into
// its parent, one prefixed with '#' is flattened into parents of the same
// rule, and one prefixed with '?' is replaced by its only child when it has
// just one.
//
// Compile a grammar once and call Parse on it as many times as needed; a
// compiled Grammar is safe for concurrent use.
package plyfin

import (
	"fmt"

	"github.com/dekarrin/plyfin/internal/lex"
	"github.com/dekarrin/plyfin/internal/lr"
	"github.com/dekarrin/plyfin/internal/simplify"
	"github.com/dekarrin/plyfin/stree"
)

// StartRule is the rule that every grammar must define and that every parse
// result is a tree of.
const StartRule = simplify.StartRule

// Rule is a rule of a compiled grammar after all groups, operators and
// permutations have been rewritten into plain alternatives.
type Rule struct {
	Name         string
	Alternatives [][]string
	Expand       bool
	Flatten      bool
	Expand1      bool
}

// String renders r in grammar notation, such as "@list: item | list item;".
func (r Rule) String() string {
	return simplify.RuleDef{
		Name:         r.Name,
		Alternatives: r.Alternatives,
		Expand:       r.Expand,
		Flatten:      r.Flatten,
		Expand1:      r.Expand1,
	}.String()
}

func (r Rule) selfExpands() bool {
	return (r.Expand || r.Expand1) && r.Name != StartRule
}

// Token is a token of a compiled grammar.
type Token struct {
	Name    string
	Pattern string
	Ignore  bool
	Newline bool

	// Anonymous is set for tokens made from patterns written directly in
	// rules.
	Anonymous bool

	// Unless holds the alternate types that matched text is given when it
	// fits their pattern.
	Unless []lex.Unless

	// HasSubgrammar is set if text matched by the token is parsed with a
	// grammar of its own.
	HasSubgrammar bool
}

func (t Token) lexDef() lex.Def {
	return lex.Def{Name: t.Name, Pattern: t.Pattern, Ignore: t.Ignore, Newline: t.Newline, Unless: t.Unless}
}

// Grammar is a compiled grammar. It is immutable once compiled except for
// RegisterTraceListener, which must be called before the Grammar is shared.
type Grammar struct {
	opts        Options
	rules       []Rule
	tokens      []Token
	newlineChar string
	section     string

	lexer *lex.Lexer
	table *lr.Table
	subs  map[string]*Grammar

	expand     map[string]bool
	flatten    map[string]bool
	selfExpand map[string]bool

	trace func(string)
}

// Compile compiles grammar source text. Any problem with the source is
// returned as a *plyerr.GrammarError.
func Compile(source string, opts Options) (*Grammar, error) {
	sg, err := simplify.Source(source)
	if err != nil {
		return nil, err
	}
	return fromSimplified(sg, opts)
}

// MustCompile is like Compile but panics if the grammar cannot be compiled.
func MustCompile(source string, opts Options) *Grammar {
	g, err := Compile(source, opts)
	if err != nil {
		panic(fmt.Sprintf("plyfin: compiling grammar: %s", err))
	}
	return g
}

func fromSimplified(sg *simplify.Grammar, opts Options) (*Grammar, error) {
	g := &Grammar{
		opts:        opts,
		newlineChar: sg.NewlineChar(),
		section:     sg.Section,
		subs:        map[string]*Grammar{},
	}

	for _, r := range sg.Rules() {
		g.rules = append(g.rules, Rule{
			Name:         r.Name,
			Alternatives: r.Alternatives,
			Expand:       r.Expand,
			Flatten:      r.Flatten,
			Expand1:      r.Expand1,
		})
	}

	for _, t := range sg.Tokens() {
		g.tokens = append(g.tokens, Token{
			Name:          t.Name,
			Pattern:       t.Pattern,
			Ignore:        t.Ignore,
			Newline:       t.Newline,
			Anonymous:     t.Anonymous,
			Unless:        t.Unless,
			HasSubgrammar: t.Subgrammar != nil,
		})

		if t.Subgrammar != nil {
			sub, err := fromSimplified(t.Subgrammar, opts)
			if err != nil {
				return nil, fmt.Errorf("subgrammar of token %s: %w", t.Name, err)
			}
			g.subs[t.Name] = sub
		}
	}

	table, err := lr.Build(g.lrGrammar())
	if err != nil {
		return nil, err
	}
	g.table = table

	if err := g.init(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grammar) lrGrammar() lr.Grammar {
	lg := lr.Grammar{Start: StartRule}
	for _, r := range g.rules {
		for _, alt := range r.Alternatives {
			lg.Rules = append(lg.Rules, lr.Rule{Name: r.Name, Symbols: alt})
		}
	}
	return lg
}

// init builds the lexer and the rule modifier lookups from the rules and
// tokens of g.
func (g *Grammar) init() error {
	defs := make([]lex.Def, len(g.tokens))
	for i := range g.tokens {
		defs[i] = g.tokens[i].lexDef()
	}
	lx, err := lex.New(defs, g.newlineChar)
	if err != nil {
		return err
	}
	g.lexer = lx

	g.expand = map[string]bool{}
	g.flatten = map[string]bool{}
	g.selfExpand = map[string]bool{}
	for _, r := range g.rules {
		if r.Expand {
			g.expand[r.Name] = true
		}
		if r.Flatten {
			g.flatten[r.Name] = true
		}
		if r.selfExpands() {
			g.selfExpand[r.Name] = true
		}
	}
	return nil
}

// Parse parses text into a tree whose head is StartRule. If the text cannot be
// lexed, a *plyerr.TokenizeError is returned; if it does not match the
// grammar, a *plyerr.ParseError with every syntax error found is returned.
func (g *Grammar) Parse(text string) (*stree.Tree, error) {
	p := lr.NewParser(g.table)
	if g.trace != nil {
		p.RegisterTraceListener(g.trace)
	}

	result, err := p.Parse(g.lexer.Lex(text), g.reduce)
	if err != nil {
		return nil, err
	}
	tree := result.(*stree.Tree)

	if len(g.subs) > 0 {
		if err := g.applySubgrammars(tree); err != nil {
			return nil, err
		}
	}
	g.postprocess(tree)

	return tree, nil
}

// Lex splits text into tokens. Ignored tokens are not included.
func (g *Grammar) Lex(text string) ([]stree.Token, error) {
	return g.lexer.LexAll(text)
}

// Rules returns the rules of the grammar in definition order. Rules made for
// operators come after the rules they were made for.
func (g *Grammar) Rules() []Rule {
	rules := make([]Rule, len(g.rules))
	copy(rules, g.rules)
	return rules
}

// Tokens returns the tokens of the grammar in definition order. Anonymous
// tokens come last.
func (g *Grammar) Tokens() []Token {
	toks := make([]Token, len(g.tokens))
	copy(toks, g.tokens)
	return toks
}

// Subgrammar returns the grammar that text matched by the named token is
// parsed with, or nil if the token has none.
func (g *Grammar) Subgrammar(token string) *Grammar {
	return g.subs[token]
}

// Options returns the options the grammar was compiled with.
func (g *Grammar) Options() Options {
	return g.opts
}

// Section returns the raw text of the ### section at the end of the grammar
// source, if it had one.
func (g *Grammar) Section() string {
	return g.section
}

// Warnings returns the shift/reduce conflicts found while building the parse
// table. Each was resolved in favor of shifting.
func (g *Grammar) Warnings() []string {
	return g.table.Warnings()
}

// TableString returns the parse table rendered as text.
func (g *Grammar) TableString() string {
	return g.table.String()
}

// RegisterTraceListener sets a function that receives a line of text for each
// step taken while parsing. It must be called before the Grammar is used from
// more than one goroutine.
func (g *Grammar) RegisterTraceListener(listener func(s string)) {
	g.trace = listener
	for _, sub := range g.subs {
		sub.RegisterTraceListener(listener)
	}
}
