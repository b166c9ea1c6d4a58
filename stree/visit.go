package stree

// Visitor walks a tree in post-order and calls the handler registered for each
// node's Head. Handlers may rewrite the node they are given but the Visitor
// does not revisit what they change during the same pass.
//
// Handlers return whether they changed anything. Visit reports whether any
// handler did, which is what VisitUntilStable uses as its fixpoint test.
type Visitor struct {
	handlers map[string]func(t *Tree) bool

	// Default, if set, is called for nodes whose Head has no handler.
	Default func(t *Tree) bool
}

// NewVisitor returns a Visitor with no handlers registered.
func NewVisitor() *Visitor {
	return &Visitor{handlers: map[string]func(t *Tree) bool{}}
}

// On registers fn as the handler for nodes with the given head, replacing any
// previous handler. It returns v so registrations can be chained.
func (v *Visitor) On(head string, fn func(t *Tree) bool) *Visitor {
	if v.handlers == nil {
		v.handlers = map[string]func(t *Tree) bool{}
	}
	v.handlers[head] = fn
	return v
}

// Visit runs one post-order pass over t: all Tree children of a node are
// visited (left to right) before the node itself. The order of nodes is
// fixed before any handler runs.
func (v *Visitor) Visit(t *Tree) bool {
	open := []*Tree{t}
	var queue []*Tree
	for len(open) > 0 {
		cur := open[len(open)-1]
		open = open[:len(open)-1]
		queue = append(queue, cur)
		for i := range cur.Tail {
			if sub, ok := cur.Tail[i].(*Tree); ok {
				open = append(open, sub)
			}
		}
	}

	changed := false
	for i := len(queue) - 1; i >= 0; i-- {
		node := queue[i]
		fn, ok := v.handlers[node.Head]
		if !ok {
			fn = v.Default
		}
		if fn != nil && fn(node) {
			changed = true
		}
	}
	return changed
}

// VisitUntilStable repeats Visit until a pass reports no change and returns the
// number of passes that did change something.
func (v *Visitor) VisitUntilStable(t *Tree) int {
	passes := 0
	for v.Visit(t) {
		passes++
	}
	return passes
}

// Transformer rebuilds a tree bottom-up into a new value. Each child is
// transformed first; leaves pass through unchanged. A fresh node holding the
// transformed children is then given to the handler registered for its Head,
// and whatever the handler returns takes the node's place in its parent.
//
// Handlers receive the children as []any because a handler lower in the tree
// may have returned something that is not a Node.
type Transformer struct {
	handlers map[string]func(head string, tail []any) any
}

// NewTransformer returns a Transformer with no handlers registered.
func NewTransformer() *Transformer {
	return &Transformer{handlers: map[string]func(head string, tail []any) any{}}
}

// On registers fn as the handler for nodes with the given head. It returns tr
// so registrations can be chained.
func (tr *Transformer) On(head string, fn func(head string, tail []any) any) *Transformer {
	if tr.handlers == nil {
		tr.handlers = map[string]func(head string, tail []any) any{}
	}
	tr.handlers[head] = fn
	return tr
}

// Transform returns the transformed value of t. t itself is not modified.
//
// For a node with no handler, the result is a new *Tree with the transformed
// children if all of them are Nodes; otherwise it is the []any of transformed
// children.
func (tr *Transformer) Transform(t *Tree) any {
	tail := make([]any, len(t.Tail))
	for i := range t.Tail {
		if sub, ok := t.Tail[i].(*Tree); ok {
			tail[i] = tr.Transform(sub)
		} else {
			tail[i] = t.Tail[i]
		}
	}

	if fn, ok := tr.handlers[t.Head]; ok {
		return fn(t.Head, tail)
	}
	return Rebuild(t.Head, tail)
}

// Rebuild makes a *Tree from a head and a list of values that are all Nodes.
// If any value is not a Node, tail is returned unchanged instead.
func Rebuild(head string, tail []any) any {
	nodes := make([]Node, len(tail))
	for i := range tail {
		n, ok := tail[i].(Node)
		if !ok {
			return tail
		}
		nodes[i] = n
	}
	return &Tree{Head: head, Tail: nodes}
}

// Links is a side table of parent links for a tree, produced by
// ComputeParents. It is a snapshot: edits to the tree are not reflected in it.
type Links struct {
	root    *Tree
	parents map[*Tree]link
}

type link struct {
	parent *Tree
	index  int
}

// ComputeParents walks the whole tree and records, for every subtree, its
// parent and its index among the parent's children.
func (t *Tree) ComputeParents() *Links {
	l := &Links{root: t, parents: map[*Tree]link{}}

	stack := []*Tree{t}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := range cur.Tail {
			if sub, ok := cur.Tail[i].(*Tree); ok {
				l.parents[sub] = link{parent: cur, index: i}
				stack = append(stack, sub)
			}
		}
	}
	return l
}

// Parent returns the parent of t and t's index in the parent's Tail. ok is
// false for the root and for trees that were not part of the snapshot.
func (l *Links) Parent(t *Tree) (parent *Tree, index int, ok bool) {
	lk, ok := l.parents[t]
	if !ok {
		return nil, 0, false
	}
	return lk.parent, lk.index, true
}

// Root returns the tree the links were computed for.
func (l *Links) Root() *Tree {
	return l.root
}

// Ancestors returns the chain of parents of t, nearest first.
func (l *Links) Ancestors(t *Tree) []*Tree {
	var chain []*Tree
	for {
		p, _, ok := l.Parent(t)
		if !ok {
			return chain
		}
		chain = append(chain, p)
		t = p
	}
}

// NextSibling returns the node right after t in its parent, if any.
func (l *Links) NextSibling(t *Tree) (Node, bool) {
	p, idx, ok := l.Parent(t)
	if !ok || idx+1 >= len(p.Tail) {
		return nil, false
	}
	return p.Tail[idx+1], true
}

// PrevSibling returns the node right before t in its parent, if any.
func (l *Links) PrevSibling(t *Tree) (Node, bool) {
	p, idx, ok := l.Parent(t)
	if !ok || idx == 0 {
		return nil, false
	}
	return p.Tail[idx-1], true
}
