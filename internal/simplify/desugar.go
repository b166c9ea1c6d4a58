package simplify

import (
	"fmt"

	"github.com/dekarrin/plyfin/internal/metagrammar"
	"github.com/dekarrin/plyfin/stree"
)

// Tree heads that the desugaring passes work with.
const (
	hGrammar     = "grammar"
	hRuleDef     = "ruledef"
	hRulesList   = "rules_list"
	hRule        = "rule"
	hOper        = "oper"
	hPermRule    = "perm_rule"
	hPermPhrase  = "perm_phrase"
	hTokenDef    = "tokendef"
	hTokenMod    = "tokenmod"
	hTokenValue  = "tokenvalue"
	hTokenMods   = "tokenmods"
	hModTokens   = "modtokenlist"
	hNumberList  = "number_list"
	hFragmentDef = "fragmentdef"
	hOptionDef   = "optiondef"
	hSubgrammar  = "subgrammar"
	hExtGrammar  = "extgrammar"

	// made for literals in rules; only exists after the anonymous token pass
	hAnonTokenDef = "anontokendef"
)

// desugarer rewrites rules until only rules_list nodes of flat rule nodes
// remain. With ops set it also removes operators and permutations, adding the
// helper rules that they need to the end of the grammar.
type desugarer struct {
	v   *stree.Visitor
	ops bool

	ruleCount int
	pending   []stree.Node
}

func newDesugarer(ops bool) *desugarer {
	d := &desugarer{ops: ops}
	d.v = stree.NewVisitor().
		On(hRule, d.rule).
		On(hRulesList, flatten).
		On(hTokenMods, flatten).
		On(hModTokens, flatten).
		On(hTokenValue, flatten).
		On(hNumberList, flatten).
		On(hPermPhrase, flatten).
		On(hGrammar, d.grammar)

	if ops {
		d.v.On(hOper, d.oper)
		d.v.On(hPermRule, d.permRule)
	}
	return d
}

// run rewrites t until nothing changes and returns the number of passes that
// changed something.
func (d *desugarer) run(t *stree.Tree) int {
	return d.v.VisitUntilStable(t)
}

// flatten splices children with the same head as t into t.
func flatten(t *stree.Tree) bool {
	var same []int
	for i := range t.Tail {
		if sub, ok := t.Tail[i].(*stree.Tree); ok && sub.Head == t.Head {
			same = append(same, i)
		}
	}
	if len(same) == 0 {
		return false
	}
	// every index is a *Tree, so this cannot fail
	_ = t.ExpandChildrenAt(same...)
	return true
}

func (d *desugarer) grammar(t *stree.Tree) bool {
	changed := flatten(t)
	if len(d.pending) > 0 {
		t.Tail = append(t.Tail, d.pending...)
		d.pending = nil
		changed = true
	}
	return changed
}

// rule distributes the first alternation found among the children of t over
// the rest of the sequence:
//
//	rule(a, rules_list(b, c), d)  ->  rules_list(rule(a, b, d), rule(a, c, d))
//
// The nested rules that this produces are flattened on a later pass.
func (d *desugarer) rule(t *stree.Tree) bool {
	changed := flatten(t)

	for i := range t.Tail {
		alts, ok := t.Tail[i].(*stree.Tree)
		if !ok || alts.Head != hRulesList {
			continue
		}

		distributed := make([]stree.Node, len(alts.Tail))
		for a, alt := range alts.Tail {
			seq := make([]stree.Node, len(t.Tail))
			for j := range t.Tail {
				if j == i {
					seq[j] = alt
				} else {
					seq[j] = copyNode(t.Tail[j])
				}
			}
			distributed[a] = stree.New(hRule, seq...)
		}

		t.Head = hRulesList
		t.Tail = distributed
		return true
	}

	return changed
}

func (d *desugarer) newRuleName(kind string) string {
	name := fmt.Sprintf("_anon_%d_%s", d.ruleCount, kind)
	d.ruleCount++
	return name
}

// addRepeatRule queues the definition of an expanded, left-recursive rule
// matching one or more of expr.
func (d *desugarer) addRepeatRule(name string, expr stree.Node, at stree.Token) {
	ref := refTo(name, at)
	def := stree.New(hRuleDef,
		refTo("@"+name, at),
		stree.New(hRulesList,
			stree.New(hRule, expr),
			stree.New(hRule, ref, copyNode(expr)),
		),
	)
	d.pending = append(d.pending, def)
}

// oper replaces an operator application:
//
//	x?  ->  (x | )
//	x+  ->  _anon_N_plus          with @_anon_N_plus: x | _anon_N_plus x;
//	x*  ->  (_anon_N_star | )     with @_anon_N_star: x | _anon_N_star x;
func (d *desugarer) oper(t *stree.Tree) bool {
	operand := t.Tail[0]
	op := t.Tail[1].(stree.Token)

	switch op.Value {
	case "*":
		name := d.newRuleName("star")
		d.addRepeatRule(name, operand, op)
		t.Head = hRulesList
		t.Tail = []stree.Node{stree.New(hRule, refTo(name, op)), stree.New(hRule)}
	case "+":
		name := d.newRuleName("plus")
		d.addRepeatRule(name, operand, op)
		t.Head = hRule
		t.Tail = []stree.Node{refTo(name, op)}
	case "?":
		t.Head = hRulesList
		t.Tail = []stree.Node{operand, stree.New(hRule)}
	default:
		return false
	}
	return true
}

// permRule replaces a permutation with an alternation over every order of its
// operands. Each operand is desugared into its own alternatives first and
// every combination of those is produced, so that `a ^ b?` gives `a b | a |
// b a | a` before duplicates are removed. A separator is placed only between
// operands that are not empty in the combination.
func (d *desugarer) permRule(t *stree.Tree) bool {
	phrase := t.Tail[0].(*stree.Tree)
	var sep stree.Node
	if len(t.Tail) > 1 {
		sep = t.Tail[1]
	}

	operands := make([][]*stree.Tree, len(phrase.Tail))
	for i := range phrase.Tail {
		operands[i] = d.alternatives(phrase.Tail[i])
	}

	var result []stree.Node
	permutations(len(operands), func(order []int) {
		choices := make([][]*stree.Tree, len(order))
		for i, idx := range order {
			choices[i] = operands[idx]
		}
		product(choices, func(combo []*stree.Tree) {
			seq := stree.New(hRule)
			for _, part := range combo {
				if len(part.Tail) == 0 {
					continue
				}
				if sep != nil && len(seq.Tail) > 0 {
					seq.Tail = append(seq.Tail, copyNode(sep))
				}
				seq.Tail = append(seq.Tail, part.Copy().Tail...)
			}
			result = appendUnique(result, seq)
		})
	})

	t.Head = hRulesList
	t.Tail = result
	return true
}

// alternatives desugars a single operand and returns the flat rules it can be
// replaced with.
func (d *desugarer) alternatives(n stree.Node) []*stree.Tree {
	wrap := stree.New(hRulesList, copyNode(n))
	d.run(wrap)

	alts := make([]*stree.Tree, 0, len(wrap.Tail))
	for _, c := range wrap.Tail {
		switch c := c.(type) {
		case *stree.Tree:
			if c.Head == hRule {
				alts = append(alts, c)
			} else {
				alts = append(alts, stree.New(hRule, c))
			}
		case stree.Token:
			alts = append(alts, stree.New(hRule, c))
		}
	}
	return alts
}

// permutations calls fn with every ordering of the indices 0 to n-1, in
// lexicographic order. fn must not keep the slice it is given.
func permutations(n int, fn func(order []int)) {
	order := make([]int, 0, n)
	used := make([]bool, n)

	var next func()
	next = func() {
		if len(order) == n {
			fn(order)
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			order = append(order, i)
			next()
			order = order[:len(order)-1]
			used[i] = false
		}
	}
	next()
}

// product calls fn with every combination that takes one element from each of
// sets, varying the last set fastest.
func product(sets [][]*stree.Tree, fn func(combo []*stree.Tree)) {
	combo := make([]*stree.Tree, len(sets))

	var next func(i int)
	next = func(i int) {
		if i == len(sets) {
			fn(combo)
			return
		}
		for _, item := range sets[i] {
			combo[i] = item
			next(i + 1)
		}
	}
	next(0)
}

func appendUnique(nodes []stree.Node, n *stree.Tree) []stree.Node {
	for i := range nodes {
		if nodes[i].Equal(n) {
			return nodes
		}
	}
	return append(nodes, n)
}

func copyNode(n stree.Node) stree.Node {
	if t, ok := n.(*stree.Tree); ok {
		return t.Copy()
	}
	return n
}

// refTo makes a rule name leaf positioned where the construct that needed it
// was written.
func refTo(name string, at stree.Token) stree.Token {
	return stree.Token{
		Type:   metagrammar.TRuleName,
		Value:  name,
		Line:   at.Line,
		Column: at.Column,
		Pos:    at.Pos,
	}
}
