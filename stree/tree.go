// Package stree contains the generic labeled tree produced by parsing, along
// with the traversal helpers used to inspect and rewrite it.
//
// A Tree has a Head tag and an ordered Tail of children. Each child is either
// another *Tree or a Token leaf. Trees built by a parser have the name of the
// grammar rule that produced them as their Head.
package stree

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"
)

const (
	treeLevelEmpty               = "        "
	treeLevelOngoing             = "  |     "
	treeLevelPrefix              = "  |%s: "
	treeLevelPrefixLast          = `  \%s: `
	treeLevelPrefixNamePadChar   = '-'
	treeLevelPrefixNamePadAmount = 3
)

func makeTreeLevelPrefix(msg string) string {
	for len([]rune(msg)) < treeLevelPrefixNamePadAmount {
		msg = string(treeLevelPrefixNamePadChar) + msg
	}
	return fmt.Sprintf(treeLevelPrefix, msg)
}

func makeTreeLevelPrefixLast(msg string) string {
	for len([]rune(msg)) < treeLevelPrefixNamePadAmount {
		msg = string(treeLevelPrefixNamePadChar) + msg
	}
	return fmt.Sprintf(treeLevelPrefixLast, msg)
}

// Tree is a node with a tag and an ordered list of children. Tail is never
// nil on trees built by this module; an empty Tail is an empty subtree.
type Tree struct {
	Head string
	Tail []Node
}

// New creates a Tree with the given head and children.
func New(head string, tail ...Node) *Tree {
	if tail == nil {
		tail = []Node{}
	}
	return &Tree{Head: head, Tail: tail}
}

func (t *Tree) node() {}

// Copy returns a deep copy of the tree. Tokens are values and are copied as
// such.
func (t *Tree) Copy() *Tree {
	cp := &Tree{Head: t.Head, Tail: make([]Node, len(t.Tail))}
	for i := range t.Tail {
		if sub, ok := t.Tail[i].(*Tree); ok {
			cp.Tail[i] = sub.Copy()
		} else {
			cp.Tail[i] = t.Tail[i]
		}
	}
	return cp
}

// ExpandChildrenAt replaces each child at the given indices with that child's
// own children, spliced in place in order. Every index must name a *Tree
// child; if any does not, an error is returned and t is left unchanged.
func (t *Tree) ExpandChildrenAt(indices ...int) error {
	if len(indices) == 0 {
		return nil
	}

	expand := make(map[int]bool, len(indices))
	added := 0
	for _, idx := range indices {
		if idx < 0 || idx >= len(t.Tail) {
			return fmt.Errorf("index %d out of range for tree with %d children", idx, len(t.Tail))
		}
		sub, ok := t.Tail[idx].(*Tree)
		if !ok {
			return fmt.Errorf("child %d of %q is a leaf and cannot be expanded", idx, t.Head)
		}
		if !expand[idx] {
			added += len(sub.Tail) - 1
		}
		expand[idx] = true
	}

	newTail := make([]Node, 0, len(t.Tail)+added)
	for i := range t.Tail {
		if expand[i] {
			newTail = append(newTail, t.Tail[i].(*Tree).Tail...)
		} else {
			newTail = append(newTail, t.Tail[i])
		}
	}
	t.Tail = newTail
	return nil
}

// RemoveChildrenAt deletes the children at the given indices. Indices refer to
// positions before any removal; out-of-range and repeated indices are ignored.
func (t *Tree) RemoveChildrenAt(indices ...int) {
	if len(indices) == 0 {
		return
	}

	remove := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(t.Tail) {
			remove[idx] = true
		}
	}
	if len(remove) == 0 {
		return
	}

	kept := make([]Node, 0, len(t.Tail)-len(remove))
	for i := range t.Tail {
		if !remove[i] {
			kept = append(kept, t.Tail[i])
		}
	}
	t.Tail = kept
}

// Subtrees returns the children of t that are Trees, in order.
func (t *Tree) Subtrees() []*Tree {
	var subs []*Tree
	for i := range t.Tail {
		if sub, ok := t.Tail[i].(*Tree); ok {
			subs = append(subs, sub)
		}
	}
	return subs
}

// NamedTail groups the Tree children of t by their Head. Leaves are not
// included.
func (t *Tree) NamedTail() map[string][]*Tree {
	named := map[string][]*Tree{}
	for _, sub := range t.Subtrees() {
		named[sub.Head] = append(named[sub.Head], sub)
	}
	return named
}

// Leaves returns every Token in the tree in left-to-right order.
func (t *Tree) Leaves() []Token {
	var leaves []Token

	type frame struct {
		tree *Tree
		next int
	}
	stack := []frame{{tree: t}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.tree.Tail) {
			stack = stack[:len(stack)-1]
			continue
		}
		child := top.tree.Tail[top.next]
		top.next++

		switch c := child.(type) {
		case *Tree:
			stack = append(stack, frame{tree: c})
		case Token:
			leaves = append(leaves, c)
		}
	}
	return leaves
}

// Select returns every subtree of t (t included) whose Head is head, in
// pre-order.
func (t *Tree) Select(head string) []*Tree {
	var found []*Tree
	stack := []*Tree{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Head == head {
			found = append(found, cur)
		}
		subs := cur.Subtrees()
		for i := len(subs) - 1; i >= 0; i-- {
			stack = append(stack, subs[i])
		}
	}
	return found
}

// Equal returns whether o is a *Tree (or Tree) with the same structure as t:
// heads equal and tails element-wise equal.
func (t *Tree) Equal(o any) bool {
	other, ok := o.(*Tree)
	if !ok {
		otherVal, ok := o.(Tree)
		if !ok {
			return false
		}
		other = &otherVal
	}
	if t == nil || other == nil {
		return t == other
	}

	type pair struct{ l, r *Tree }
	stack := []pair{{t, other}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.l.Head != p.r.Head || len(p.l.Tail) != len(p.r.Tail) {
			return false
		}
		for i := range p.l.Tail {
			lSub, lIsTree := p.l.Tail[i].(*Tree)
			rSub, rIsTree := p.r.Tail[i].(*Tree)
			if lIsTree != rIsTree {
				return false
			}
			if lIsTree {
				stack = append(stack, pair{lSub, rSub})
			} else if !p.l.Tail[i].Equal(p.r.Tail[i]) {
				return false
			}
		}
	}
	return true
}

// Hash returns a hash derived from the head and the tail of the tree. Trees
// that are Equal have the same Hash.
func (t *Tree) Hash() uint64 {
	h := fnv.New64a()
	t.writeHash(h)
	return h.Sum64()
}

func (t *Tree) writeHash(h interface{ Write([]byte) (int, error) }) {
	var lenBuf [binary.MaxVarintLen64]byte

	writeStr := func(kind byte, s string) {
		h.Write([]byte{kind})
		n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:n])
		h.Write([]byte(s))
	}

	writeStr('T', t.Head)
	n := binary.PutUvarint(lenBuf[:], uint64(len(t.Tail)))
	h.Write(lenBuf[:n])
	for i := range t.Tail {
		switch c := t.Tail[i].(type) {
		case *Tree:
			c.writeHash(h)
		case Token:
			writeStr('L', c.Value)
		}
	}
}

// Compact returns a single-line representation of the tree, such as
// `start(a("x"), "y")`.
func (t *Tree) Compact() string {
	var sb strings.Builder
	t.writeCompact(&sb)
	return sb.String()
}

func (t *Tree) writeCompact(sb *strings.Builder) {
	sb.WriteString(t.Head)
	sb.WriteRune('(')
	for i := range t.Tail {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch c := t.Tail[i].(type) {
		case *Tree:
			c.writeCompact(sb)
		case Token:
			sb.WriteString(fmt.Sprintf("%q", c.Value))
		}
	}
	sb.WriteRune(')')
}

// String returns a prettified representation of the entire tree suitable for
// use in line-by-line comparisons of tree structure. Two trees are
// structurally equal if they produce identical String() output.
func (t *Tree) String() string {
	return t.leveledStr("", "")
}

func (t *Tree) leveledStr(firstPrefix, contPrefix string) string {
	var sb strings.Builder

	sb.WriteString(firstPrefix)
	sb.WriteString(fmt.Sprintf("( %s )", t.Head))

	for i := range t.Tail {
		sb.WriteRune('\n')
		var leveledFirstPrefix string
		var leveledContPrefix string
		if i+1 < len(t.Tail) {
			leveledFirstPrefix = contPrefix + makeTreeLevelPrefix("")
			leveledContPrefix = contPrefix + treeLevelOngoing
		} else {
			leveledFirstPrefix = contPrefix + makeTreeLevelPrefixLast("")
			leveledContPrefix = contPrefix + treeLevelEmpty
		}

		switch c := t.Tail[i].(type) {
		case *Tree:
			sb.WriteString(c.leveledStr(leveledFirstPrefix, leveledContPrefix))
		case Token:
			sb.WriteString(leveledFirstPrefix)
			if c.Type != "" {
				sb.WriteString(fmt.Sprintf("(%s %q)", c.Type, c.Value))
			} else {
				sb.WriteString(fmt.Sprintf("(TERM %q)", c.Value))
			}
		}
	}

	return sb.String()
}
