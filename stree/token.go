package stree

import (
	"fmt"
)

// Node is a child of a Tree. It is always either a *Tree or a Token; no other
// implementations exist.
type Node interface {
	node()

	// Equal returns whether the Node is structurally equal to o.
	Equal(o any) bool
}

// Token is a leaf of a Tree. It holds the text that was matched along with the
// name of the token that matched it and where it was found. Only Value takes
// part in equality; the rest is metadata for diagnostics.
type Token struct {
	// Value is the text that was matched.
	Value string

	// Type is the name of the token definition that matched Value.
	Type string

	// Line is the 1-based line the token starts on. It only advances on tokens
	// marked as newline tokens; 0 means no position information is present.
	Line int

	// Column is the 1-based column the token starts on within Line. 0 means
	// the column is unknown.
	Column int

	// Pos is the 0-based offset of the token in the input, in runes.
	Pos int

	// Index is the 1-based sequence number of the token among all tokens lexed
	// from the same input, including ones that were ignored.
	Index int
}

func (tok Token) node() {}

// Equal returns whether o is a Token (or non-nil *Token) with the same Value.
func (tok Token) Equal(o any) bool {
	other, ok := o.(Token)
	if !ok {
		otherPtr, ok := o.(*Token)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	return tok.Value == other.Value
}

// String returns the token's value.
func (tok Token) String() string {
	return tok.Value
}

// Describe returns a human-readable description of the token including its
// type and position, suitable for trace output.
func (tok Token) Describe() string {
	pos := ""
	if tok.Line > 0 {
		if tok.Column > 0 {
			pos = fmt.Sprintf(" at %d:%d", tok.Line, tok.Column)
		} else {
			pos = fmt.Sprintf(" at line %d", tok.Line)
		}
	}
	return fmt.Sprintf("%s %q%s", tok.Type, tok.Value, pos)
}

// Leaf is a convenience constructor for a Token with only a value and a type.
func Leaf(typ, value string) Token {
	return Token{Type: typ, Value: value}
}
