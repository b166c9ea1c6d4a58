// Package plyerr contains the error types returned when compiling a grammar or
// when lexing and parsing input with a compiled grammar.
//
// All of them are returned as pointers and carry enough position data for a
// caller to build its own diagnostics; use errors.As to retrieve them.
package plyerr

import (
	"fmt"
	"strings"

	"github.com/dekarrin/plyfin/stree"
)

// GrammarError is returned when grammar source is malformed or inconsistent:
// it cannot be parsed, it references symbols that are never defined, or its
// table cannot be built without an unresolvable conflict.
type GrammarError struct {
	// Msg describes the problem.
	Msg string

	// Symbols holds the names of the rules or tokens involved, if any.
	Symbols []string

	// Line and Column locate the problem in the grammar source; both are 0 if
	// the problem is not tied to one place.
	Line   int
	Column int

	wrap error
}

func (e *GrammarError) Error() string {
	var sb strings.Builder
	sb.WriteString("grammar error")
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(" at line %d", e.Line))
		if e.Column > 0 {
			sb.WriteString(fmt.Sprintf(" col %d", e.Column))
		}
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if len(e.Symbols) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.Symbols, ", "))
		sb.WriteString("]")
	}
	if e.wrap != nil {
		sb.WriteString(": ")
		sb.WriteString(e.wrap.Error())
	}
	return sb.String()
}

// Unwrap gives the error that the GrammarError wraps, if it wraps one.
func (e *GrammarError) Unwrap() error {
	return e.wrap
}

// Grammar returns a new GrammarError with a formatted message.
func Grammar(format string, a ...interface{}) *GrammarError {
	return &GrammarError{Msg: fmt.Sprintf(format, a...)}
}

// GrammarSymbols returns a new GrammarError naming the symbols involved.
func GrammarSymbols(msg string, symbols ...string) *GrammarError {
	return &GrammarError{Msg: msg, Symbols: symbols}
}

// GrammarAt returns a new GrammarError located at the given line and column of
// the grammar source.
func GrammarAt(line, col int, format string, a ...interface{}) *GrammarError {
	return &GrammarError{Msg: fmt.Sprintf(format, a...), Line: line, Column: col}
}

// WrapGrammar returns a new GrammarError that wraps err.
func WrapGrammar(err error, format string, a ...interface{}) *GrammarError {
	return &GrammarError{Msg: fmt.Sprintf(format, a...), wrap: err}
}

// WrapGrammarAt returns a new GrammarError located at the given line and
// column that wraps err.
func WrapGrammarAt(err error, line, col int, format string, a ...interface{}) *GrammarError {
	return &GrammarError{Msg: fmt.Sprintf(format, a...), Line: line, Column: col, wrap: err}
}

// TokenizeError is returned when the input contains a character that no token
// pattern matches.
type TokenizeError struct {
	// Char is the first character that could not be matched.
	Char rune

	// Pos is the offset of Char in the input, in runes.
	Pos int

	// Line and Column locate Char as tracked by the lexer's newline tokens.
	Line   int
	Column int

	// LastType is the type of the last token successfully lexed before Char,
	// or "" if there was none.
	LastType string
}

func (e *TokenizeError) Error() string {
	after := "start of input"
	if e.LastType != "" {
		after = e.LastType
	}
	return fmt.Sprintf("no token matches %q at line %d col %d (after %s)", e.Char, e.Line, e.Column, after)
}

// SyntaxError is a single place where the token stream did not match the
// grammar.
type SyntaxError struct {
	// Token is the offending token. It is the zero Token if AtEnd is set.
	Token stree.Token

	// AtEnd is true when the input ended before the grammar allowed it to.
	AtEnd bool

	// Expected lists the token types that would have been accepted.
	Expected []string
}

func (e SyntaxError) Error() string {
	if e.AtEnd {
		return "Syntax error: unexpected end of input"
	}

	tok := e.Token
	if tok.Line > 0 && tok.Column > 0 {
		return fmt.Sprintf("Syntax error in input at '%s' (type %s) line %d col %d", tok.Value, tok.Type, tok.Line, tok.Column)
	} else if tok.Line > 0 {
		return fmt.Sprintf("Syntax error in input at '%s' (type %s) line %d", tok.Value, tok.Type, tok.Line)
	}
	return fmt.Sprintf("Syntax error in input at '%s' (type %s) (details unknown)", tok.Value, tok.Type)
}

// ParseError is returned when the input does not match the grammar. It holds
// every syntax error found before parsing gave up, in input order.
type ParseError struct {
	Errors []SyntaxError
}

func (e *ParseError) Error() string {
	if len(e.Errors) == 0 {
		return "parse error"
	}

	msgs := make([]string, len(e.Errors))
	for i := range e.Errors {
		msgs[i] = e.Errors[i].Error()
	}
	return strings.Join(msgs, "\n")
}

// First returns the first syntax error in the batch.
func (e *ParseError) First() SyntaxError {
	if len(e.Errors) == 0 {
		return SyntaxError{AtEnd: true}
	}
	return e.Errors[0]
}
