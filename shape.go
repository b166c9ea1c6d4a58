package plyfin

import (
	"fmt"

	"github.com/dekarrin/plyfin/internal/lr"
	"github.com/dekarrin/plyfin/stree"
)

// splices returns whether child is spliced into a tree with the given head.
func (g *Grammar) splices(head string, child *stree.Tree) bool {
	return g.expand[child.Head] || (child.Head == head && g.flatten[child.Head])
}

// reduce builds the value of one rule match. Children of expanded rules, and
// of flattened rules matched inside themselves, are spliced in. If the match
// then has more than one child and filtering is on, token leaves are dropped.
// A self-expanding rule left with a single child is replaced by that child.
func (g *Grammar) reduce(rule lr.Rule, children []any) any {
	var tail []stree.Node

	// entries of tail before this index are known to hold no token leaves
	filtered := 0

	for i := range children {
		switch c := children[i].(type) {
		case *stree.Tree:
			if g.splices(rule.Name, c) {
				if tail == nil {
					// nothing else refers to c, so its slice can be grown in
					// place; this keeps left-recursive chains linear
					tail = c.Tail
					if g.opts.AutoFilterTokens && len(c.Tail) > 1 {
						// c went through the filter when it was built
						filtered = len(c.Tail)
					}
				} else {
					tail = append(tail, c.Tail...)
				}
				continue
			}
			tail = append(tail, c)
		case stree.Token:
			tail = append(tail, c)
		}
	}

	if g.opts.AutoFilterTokens && len(tail) > 1 {
		kept := tail[:filtered]
		for _, n := range tail[filtered:] {
			if _, ok := n.(*stree.Tree); ok {
				kept = append(kept, n)
			}
		}
		tail = kept
	}

	if len(tail) == 1 && g.selfExpand[rule.Name] {
		return tail[0]
	}

	if tail == nil {
		tail = []stree.Node{}
	}
	return &stree.Tree{Head: rule.Name, Tail: tail}
}

// postprocess does one post-order pass over a parse result that splices
// expanded and flattened rules into their parents and, if KeepEmptyTrees is
// off, removes subtrees left without children.
func (g *Grammar) postprocess(t *stree.Tree) {
	v := stree.NewVisitor()
	v.Default = func(t *stree.Tree) bool {
		changed := false

		var spliced []int
		for i := range t.Tail {
			if sub, ok := t.Tail[i].(*stree.Tree); ok && g.splices(t.Head, sub) {
				spliced = append(spliced, i)
			}
		}
		if len(spliced) > 0 {
			// only *Tree indices were collected
			_ = t.ExpandChildrenAt(spliced...)
			changed = true
		}

		if !g.opts.KeepEmptyTrees {
			var empty []int
			for i := range t.Tail {
				if sub, ok := t.Tail[i].(*stree.Tree); ok && len(sub.Tail) == 0 {
					empty = append(empty, i)
				}
			}
			if len(empty) > 0 {
				t.RemoveChildrenAt(empty...)
				changed = true
			}
		}

		return changed
	}
	v.Visit(t)
}

// applySubgrammars replaces each leaf whose token has a subgrammar with the
// result of parsing the leaf's text with that subgrammar.
func (g *Grammar) applySubgrammars(t *stree.Tree) error {
	var err error

	v := stree.NewVisitor()
	v.Default = func(t *stree.Tree) bool {
		if err != nil {
			return false
		}
		changed := false
		for i := range t.Tail {
			leaf, ok := t.Tail[i].(stree.Token)
			if !ok {
				continue
			}
			sub, ok := g.subs[leaf.Type]
			if !ok {
				continue
			}

			subTree, parseErr := sub.Parse(leaf.Value)
			if parseErr != nil {
				err = fmt.Errorf("%s token at line %d col %d: %w", leaf.Type, leaf.Line, leaf.Column, parseErr)
				return false
			}
			t.Tail[i] = subTree
			changed = true
		}
		return changed
	}
	v.Visit(t)

	return err
}
