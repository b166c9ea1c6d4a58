package lr

import (
	"fmt"
	"strings"

	"github.com/dekarrin/plyfin/internal/util"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

// TokenSource supplies tokens to a Parser. Next returns ok=false at the end of
// input.
type TokenSource interface {
	Next() (tok stree.Token, ok bool, err error)
}

// ReduceFunc builds the value for a reduction of rule from the values of its
// matched symbols, given in order. Terminals are given as stree.Token.
type ReduceFunc func(rule Rule, children []any) any

// SliceSource is a TokenSource over a fixed list of tokens.
type SliceSource struct {
	Tokens []stree.Token
	pos    int
}

func (s *SliceSource) Next() (stree.Token, bool, error) {
	if s.pos >= len(s.Tokens) {
		return stree.Token{}, false, nil
	}
	tok := s.Tokens[s.pos]
	s.pos++
	return tok, true, nil
}

// Parser runs a Table over token streams. The Table is shared; each call to
// Parse keeps its own stack, so a Parser can be used from several goroutines
// once its trace listener is set.
type Parser struct {
	Table *Table
	trace func(s string)
}

// NewParser returns a Parser for the given table.
func NewParser(t *Table) *Parser {
	return &Parser{Table: t}
}

// RegisterTraceListener sets a function that receives a line of text for
// every step the parser takes.
func (p *Parser) RegisterTraceListener(listener func(s string)) {
	p.trace = listener
}

func (p *Parser) notifyTraceFn(fn func() string) {
	if p.trace != nil {
		p.trace(fn())
	}
}

func (p *Parser) notifyTrace(fmtStr string, args ...interface{}) {
	p.notifyTraceFn(func() string { return fmt.Sprintf(fmtStr, args...) })
}

func (p *Parser) notifyNextToken(tok stree.Token, ok bool) {
	if !ok {
		p.notifyTrace("Got next token: %s", EndSymbol)
		return
	}
	p.notifyTraceFn(func() string { return "Got next token: " + tok.Describe() })
}

func (p *Parser) notifyStack(st util.Stack[entry]) {
	p.notifyTraceFn(func() string {
		states := make([]string, len(st.Of))
		for i := range st.Of {
			states[i] = fmt.Sprintf("%d", st.Of[i].state)
		}
		return "State stack: [" + strings.Join(states, ", ") + "]"
	})
}

func (p *Parser) notifyAction(act Action) {
	p.notifyTraceFn(func() string {
		if act.Type == Reduce {
			return "Action: REDUCE " + p.Table.rules[act.Rule].String()
		} else if act.Type == Shift {
			return fmt.Sprintf("Action: SHIFT %d", act.State)
		}
		return "Action: " + act.Type.String()
	})
}

type entry struct {
	value any
	state int
}

// Parse runs the table over the tokens from src, calling reduce for every
// reduction, and returns the value built for the start rule.
//
// A token with no action is recorded as a syntax error and skipped, along
// with every following token that also has no action in the same state, so
// that further errors can be found. If any syntax error was recorded the
// result is a *plyerr.ParseError holding all of them. An error from src is
// returned as-is.
func (p *Parser) Parse(src TokenSource, reduce ReduceFunc) (any, error) {
	t := p.Table
	stack := util.Stack[entry]{Of: []entry{{state: t.Initial()}}}
	var syntaxErrs []plyerr.SyntaxError

	tok, ok, err := src.Next()
	if err != nil {
		return nil, err
	}
	p.notifyNextToken(tok, ok)

	for {
		p.notifyStack(stack)
		s := stack.Peek().state

		sym := EndSymbol
		if ok {
			sym = tok.Type
		}

		act, found := t.Action(s, sym)
		if !found {
			if !ok {
				syntaxErrs = append(syntaxErrs, plyerr.SyntaxError{AtEnd: true, Expected: t.Expected(s)})
				return nil, &plyerr.ParseError{Errors: syntaxErrs}
			}

			syntaxErrs = append(syntaxErrs, plyerr.SyntaxError{Token: tok, Expected: t.Expected(s)})
			p.notifyTrace("Syntax error on %s; skipping", tok.Describe())

			// skip until something can be done from this state
			for {
				tok, ok, err = src.Next()
				if err != nil {
					return nil, err
				}
				p.notifyNextToken(tok, ok)
				if !ok {
					break
				}
				if _, has := t.Action(s, tok.Type); has {
					break
				}
			}
			continue
		}

		p.notifyAction(act)

		switch act.Type {
		case Shift:
			stack.Push(entry{value: tok, state: act.State})

			tok, ok, err = src.Next()
			if err != nil {
				return nil, err
			}
			p.notifyNextToken(tok, ok)
		case Reduce:
			rule := t.rules[act.Rule]
			popped := stack.PopN(len(rule.Symbols))
			children := make([]any, len(popped))
			for i := range popped {
				children[i] = popped[i].value
			}

			val := reduce(rule, children)

			below := stack.Peek().state
			gt, has := t.Action(below, rule.Name)
			if !has || gt.Type != Shift {
				// a correctly built table always has this
				return nil, fmt.Errorf("no goto from state %d on %s", below, rule.Name)
			}
			stack.Push(entry{value: val, state: gt.State})
		case Accept:
			if len(syntaxErrs) > 0 {
				return nil, &plyerr.ParseError{Errors: syntaxErrs}
			}
			return stack.Peek().value, nil
		}
	}
}
