package lex

import (
	"fmt"
	"sort"

	"github.com/dlclark/regexp2"

	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

// DefaultNewline is the newline character used when none is given.
const DefaultNewline = "\n"

type unlessRegex struct {
	name string
	re   *regexp2.Regexp
	src  string
}

type compiledDef struct {
	Def

	re      *regexp2.Regexp
	literal bool

	unlessExact map[string]string
	unlessRegex []unlessRegex
}

// Lexer holds the compiled form of a set of token definitions. It is read-only
// after creation and can be shared by any number of concurrent Streams.
type Lexer struct {
	defs        []compiledDef
	newlineChar string
	listener    func(stree.Token)
}

// New compiles the given token definitions into a Lexer. Definition order
// matters only to break ties between matches of equal length that are either
// both literals or both non-literals; a literal always beats a regex of the
// same length.
//
// If newlineChar is empty, DefaultNewline is used.
func New(defs []Def, newlineChar string) (*Lexer, error) {
	if newlineChar == "" {
		newlineChar = DefaultNewline
	}

	lx := &Lexer{newlineChar: newlineChar}
	seen := map[string]bool{}

	for _, d := range defs {
		if seen[d.Name] {
			return nil, plyerr.GrammarSymbols("token defined more than once", d.Name)
		}
		seen[d.Name] = true

		re, err := regexp2.Compile(`\G(?:`+d.Pattern+`)`, regexp2.None)
		if err != nil {
			return nil, plyerr.WrapGrammar(err, "token %s has invalid pattern '%s'", d.Name, d.Pattern)
		}

		cd := compiledDef{
			Def:         d,
			re:          re,
			literal:     IsLiteral(d.Pattern),
			unlessExact: map[string]string{},
		}

		for _, u := range d.Unless {
			if isPlainWord(u.Pattern) {
				cd.unlessExact[u.Pattern] = u.Name
				continue
			}

			src := u.Pattern
			if len(src) == 0 || src[0] != '^' {
				src = "^" + src
			}
			if src[len(src)-1] != '$' {
				src += "$"
			}
			ure, err := regexp2.Compile(src, regexp2.None)
			if err != nil {
				return nil, plyerr.WrapGrammar(err, "unless alternate %s of token %s has invalid pattern '%s'", u.Name, d.Name, u.Pattern)
			}
			cd.unlessRegex = append(cd.unlessRegex, unlessRegex{name: u.Name, re: ure, src: src})
		}

		// longer patterns are more specific; try them first
		sort.SliceStable(cd.unlessRegex, func(i, j int) bool {
			return len(cd.unlessRegex[i].src) > len(cd.unlessRegex[j].src)
		})

		lx.defs = append(lx.defs, cd)
	}

	return lx, nil
}

// Defs returns the definitions the Lexer was created from, in order.
func (lx *Lexer) Defs() []Def {
	defs := make([]Def, len(lx.defs))
	for i := range lx.defs {
		defs[i] = lx.defs[i].Def
	}
	return defs
}

// NewlineChar returns the character sequence counted as a line break.
func (lx *Lexer) NewlineChar() string {
	return lx.newlineChar
}

// RegisterTokenListener sets a function to be called with every token that a
// Stream produces, ignored tokens included. It must be set before the Lexer is
// used from more than one goroutine.
func (lx *Lexer) RegisterTokenListener(fn func(stree.Token)) {
	lx.listener = fn
}

// Lex returns a new Stream over input. Each Stream has its own position state.
func (lx *Lexer) Lex(input string) *Stream {
	return &Stream{
		lx:          lx,
		input:       []rune(input),
		line:        1,
		lineStartAt: -1,
	}
}

// LexAll lexes all of input and returns every token that is not ignored.
func (lx *Lexer) LexAll(input string) ([]stree.Token, error) {
	s := lx.Lex(input)

	var toks []stree.Token
	for {
		tok, ok, err := s.Next()
		if err != nil {
			return toks, err
		}
		if !ok {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// match finds the definition that matches the longest text at pos. It returns
// the index of the def and the length of the match in runes; the length is 0 if
// nothing matched.
func (lx *Lexer) match(input []rune, pos int) (int, int, error) {
	best := -1
	bestLen := 0
	for i := range lx.defs {
		m, err := lx.defs[i].re.FindRunesMatchStartingAt(input, pos)
		if err != nil {
			return 0, 0, fmt.Errorf("matching token %s: %w", lx.defs[i].Name, err)
		}
		if m == nil || m.Index != pos || m.Length == 0 {
			continue
		}

		if m.Length > bestLen || (m.Length == bestLen && lx.defs[i].literal && !lx.defs[best].literal) {
			best = i
			bestLen = m.Length
		}
	}
	return best, bestLen, nil
}

// classify gives the token type for text matched by the def at index i.
func (lx *Lexer) classify(i int, text string) (string, error) {
	d := lx.defs[i]
	if name, ok := d.unlessExact[text]; ok {
		return name, nil
	}
	for _, u := range d.unlessRegex {
		ok, err := u.re.MatchString(text)
		if err != nil {
			return "", fmt.Errorf("matching %s alternate %s: %w", d.Name, u.name, err)
		}
		if ok {
			return u.name, nil
		}
	}
	return d.Name, nil
}
