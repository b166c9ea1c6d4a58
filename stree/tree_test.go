package stree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func leaf(v string) Token {
	return Token{Type: "T", Value: v}
}

func Test_Tree_ExpandChildrenAt(t *testing.T) {
	testCases := []struct {
		name      string
		tree      *Tree
		indices   []int
		expect    *Tree
		expectErr bool
	}{
		{
			name:    "no indices",
			tree:    New("a", leaf("x")),
			expect:  New("a", leaf("x")),
			indices: nil,
		},
		{
			name:    "single subtree in middle",
			tree:    New("a", leaf("x"), New("b", leaf("y"), leaf("z")), leaf("w")),
			indices: []int{1},
			expect:  New("a", leaf("x"), leaf("y"), leaf("z"), leaf("w")),
		},
		{
			name:    "two subtrees, one empty",
			tree:    New("a", New("b", leaf("y")), New("c"), leaf("w")),
			indices: []int{1, 0},
			expect:  New("a", leaf("y"), leaf("w")),
		},
		{
			name:    "repeated index is spliced once",
			tree:    New("a", New("b", leaf("y"), leaf("z"))),
			indices: []int{0, 0},
			expect:  New("a", leaf("y"), leaf("z")),
		},
		{
			name:      "leaf index fails",
			tree:      New("a", leaf("x"), New("b")),
			indices:   []int{0},
			expect:    New("a", leaf("x"), New("b")),
			expectErr: true,
		},
		{
			name:      "out of range fails",
			tree:      New("a", leaf("x")),
			indices:   []int{3},
			expect:    New("a", leaf("x")),
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			err := tc.tree.ExpandChildrenAt(tc.indices...)

			if tc.expectErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
			assert.True(tc.expect.Equal(tc.tree), "expected:\n%s\nactual:\n%s", tc.expect, tc.tree)
		})
	}
}

func Test_Tree_RemoveChildrenAt(t *testing.T) {
	testCases := []struct {
		name    string
		indices []int
		expect  []string
	}{
		{name: "none", indices: nil, expect: []string{"0", "1", "2", "3"}},
		{name: "first", indices: []int{0}, expect: []string{"1", "2", "3"}},
		{name: "ascending indices", indices: []int{1, 2}, expect: []string{"0", "3"}},
		{name: "unsorted with duplicates", indices: []int{3, 0, 3}, expect: []string{"1", "2"}},
		{name: "out of range ignored", indices: []int{7, -1, 2}, expect: []string{"0", "1", "3"}},
		{name: "all", indices: []int{2, 0, 3, 1}, expect: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			tree := New("r", leaf("0"), leaf("1"), leaf("2"), leaf("3"))

			tree.RemoveChildrenAt(tc.indices...)

			var actual []string
			for _, l := range tree.Leaves() {
				actual = append(actual, l.Value)
			}
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Tree_RemoveChildrenAt_manyChildren(t *testing.T) {
	assert := assert.New(t)

	const count = 200000
	tree := New("r")
	var odd []int
	for i := 0; i < count; i++ {
		if i%2 == 0 {
			tree.Tail = append(tree.Tail, leaf("keep"))
		} else {
			tree.Tail = append(tree.Tail, New("empty"))
			odd = append(odd, i)
		}
	}

	tree.RemoveChildrenAt(odd...)

	assert.Len(tree.Tail, count/2)
	assert.Empty(tree.Subtrees())
}

func Test_Tree_Equal(t *testing.T) {
	testCases := []struct {
		name   string
		left   *Tree
		right  any
		expect bool
	}{
		{
			name:   "same structure",
			left:   New("a", New("b", leaf("1")), leaf("2")),
			right:  New("a", New("b", leaf("1")), leaf("2")),
			expect: true,
		},
		{
			name:   "token position is not part of equality",
			left:   New("a", Token{Type: "X", Value: "1", Line: 1}),
			right:  New("a", Token{Type: "Y", Value: "1", Line: 7}),
			expect: true,
		},
		{
			name:   "different heads",
			left:   New("a"),
			right:  New("b"),
			expect: false,
		},
		{
			name:   "leaf vs tree",
			left:   New("a", leaf("b")),
			right:  New("a", New("b")),
			expect: false,
		},
		{
			name:   "different lengths",
			left:   New("a", leaf("1")),
			right:  New("a", leaf("1"), leaf("1")),
			expect: false,
		},
		{
			name:   "value instead of pointer",
			left:   New("a", leaf("1")),
			right:  Tree{Head: "a", Tail: []Node{leaf("1")}},
			expect: true,
		},
		{
			name:   "not a tree",
			left:   New("a"),
			right:  "a",
			expect: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.left.Equal(tc.right)

			assert.Equal(tc.expect, actual)
			if other, ok := tc.right.(*Tree); ok && tc.expect {
				assert.Equal(tc.left.Hash(), other.Hash())
			}
		})
	}
}

func Test_Tree_Hash_distinguishesShape(t *testing.T) {
	assert := assert.New(t)

	a := New("r", New("x", leaf("1"), leaf("2")))
	b := New("r", New("x", leaf("1")), leaf("2"))
	c := New("r", New("x", leaf("12")))

	assert.NotEqual(a.Hash(), b.Hash())
	assert.NotEqual(a.Hash(), c.Hash())
}

func Test_Tree_NamedTail(t *testing.T) {
	assert := assert.New(t)
	tree := New("r", New("x", leaf("1")), leaf("sep"), New("y"), New("x", leaf("2")))

	named := tree.NamedTail()

	assert.Len(named, 2)
	assert.Len(named["x"], 2)
	assert.Len(named["y"], 1)
	assert.Equal("2", named["x"][1].Tail[0].(Token).Value)
}

func Test_Tree_ComputeParents(t *testing.T) {
	assert := assert.New(t)
	b := New("b", leaf("1"))
	c := New("c")
	d := New("d", c)
	root := New("a", b, leaf("2"), d)

	links := root.ComputeParents()

	p, idx, ok := links.Parent(b)
	assert.True(ok)
	assert.Same(root, p)
	assert.Equal(0, idx)

	p, idx, ok = links.Parent(c)
	assert.True(ok)
	assert.Same(d, p)
	assert.Equal(0, idx)

	_, _, ok = links.Parent(root)
	assert.False(ok)

	assert.Equal([]*Tree{d, root}, links.Ancestors(c))

	next, ok := links.NextSibling(b)
	assert.True(ok)
	assert.Equal(leaf("2"), next)

	_, ok = links.PrevSibling(b)
	assert.False(ok)

	// links are a snapshot
	e := New("e")
	root.Tail = append(root.Tail, e)
	_, _, ok = links.Parent(e)
	assert.False(ok)
}

func Test_Tree_Select(t *testing.T) {
	assert := assert.New(t)
	tree := New("a", New("b", New("a")), New("a", leaf("1")))

	found := tree.Select("a")

	assert.Len(found, 3)
	assert.Same(tree, found[0])
	assert.Equal(0, len(found[1].Tail))
}

func Test_Tree_Copy(t *testing.T) {
	assert := assert.New(t)
	orig := New("a", New("b", leaf("1")))

	cp := orig.Copy()
	cp.Tail[0].(*Tree).Head = "changed"

	assert.Equal("b", orig.Tail[0].(*Tree).Head)
	assert.False(orig.Equal(cp))
}

func Test_Tree_String(t *testing.T) {
	assert := assert.New(t)
	tree := New("start", New("a", Token{Type: "A", Value: "x"}), Token{Value: "y"})

	expect := "( start )\n" +
		"  |---: ( a )\n" +
		"  |       \\---: (A \"x\")\n" +
		"  \\---: (TERM \"y\")"

	assert.Equal(expect, tree.String())
	assert.Equal(`start(a("x"), "y")`, tree.Compact())
}
