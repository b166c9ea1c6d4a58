// Package lr builds shift/reduce tables from context-free grammars and runs
// them over token streams.
//
// Tables are built from the canonical collection of LR(0) item sets with
// reduce actions keyed on FOLLOW sets. Where a shift and a reduce collide, the
// shift is kept and the collision is recorded as a warning; two different
// reduces colliding is an error.
package lr

import (
	"fmt"
	"strings"

	"github.com/dekarrin/plyfin/internal/util"
	"github.com/dekarrin/plyfin/plyerr"
)

const (
	// RootRule is the name of the rule that the table builder adds to derive
	// the start rule.
	RootRule = "$root"

	// EndSymbol is the lookahead symbol for the end of input.
	EndSymbol = "$END"
)

// Rule is a single production: Name derives the sequence Symbols. An empty
// Symbols derives the empty string.
type Rule struct {
	Name    string
	Symbols []string
}

// String shows the rule as "name -> sym sym sym".
func (r Rule) String() string {
	if len(r.Symbols) == 0 {
		return r.Name + " -> ε"
	}
	return r.Name + " -> " + strings.Join(r.Symbols, " ")
}

// Grammar is the input to table construction. Every symbol that is not the
// Name of some rule is a terminal.
type Grammar struct {
	Start string
	Rules []Rule
}

// analysis holds the per-symbol sets computed for an augmented grammar.
type analysis struct {
	rules    []Rule
	byName   map[string][]int
	nonTerms []string
	terms    []string
	nullable util.StringSet
	first    map[string]util.StringSet
	follow   map[string]util.StringSet
}

// augment validates g and returns its rules with the root rule at index 0.
func augment(g Grammar) ([]Rule, error) {
	if g.Start == "" {
		return nil, plyerr.Grammar("no start rule given")
	}

	rules := []Rule{{Name: RootRule, Symbols: []string{g.Start}}}

	found := false
	for _, r := range g.Rules {
		if r.Name == RootRule || r.Name == EndSymbol {
			return nil, plyerr.GrammarSymbols("reserved rule name", r.Name)
		}
		if r.Name == g.Start {
			found = true
		}
		syms := make([]string, len(r.Symbols))
		copy(syms, r.Symbols)
		rules = append(rules, Rule{Name: r.Name, Symbols: syms})
	}

	if !found {
		return nil, plyerr.GrammarSymbols("start rule is not defined", g.Start)
	}
	return rules, nil
}

func analyze(rules []Rule) *analysis {
	a := &analysis{
		rules:    rules,
		byName:   map[string][]int{},
		nullable: util.NewStringSet(),
		first:    map[string]util.StringSet{},
		follow:   map[string]util.StringSet{},
	}

	for i, r := range rules {
		if _, ok := a.byName[r.Name]; !ok {
			a.nonTerms = append(a.nonTerms, r.Name)
		}
		a.byName[r.Name] = append(a.byName[r.Name], i)
	}

	seenTerm := util.NewStringSet()
	for _, r := range rules {
		for _, sym := range r.Symbols {
			if !a.isNonTerminal(sym) && !seenTerm.Has(sym) {
				seenTerm.Add(sym)
				a.terms = append(a.terms, sym)
			}
		}
	}

	a.computeFirst()
	a.computeFollow()
	return a
}

func (a *analysis) isNonTerminal(sym string) bool {
	_, ok := a.byName[sym]
	return ok
}

// computeFirst finds the nullable nonterminals and the FIRST set of every
// nonterminal by iterating until nothing grows.
func (a *analysis) computeFirst() {
	for _, nt := range a.nonTerms {
		a.first[nt] = util.NewStringSet()
	}

	changed := true
	for changed {
		changed = false
		for _, r := range a.rules {
			allNullable := true
			for _, sym := range r.Symbols {
				if a.isNonTerminal(sym) {
					if a.first[r.Name].Merge(a.first[sym]) {
						changed = true
					}
					if !a.nullable.Has(sym) {
						allNullable = false
						break
					}
				} else {
					if !a.first[r.Name].Has(sym) {
						a.first[r.Name].Add(sym)
						changed = true
					}
					allNullable = false
					break
				}
			}
			if allNullable && !a.nullable.Has(r.Name) {
				a.nullable.Add(r.Name)
				changed = true
			}
		}
	}
}

// firstOfSeq returns the FIRST set of a sequence of symbols and whether the
// whole sequence can derive the empty string.
func (a *analysis) firstOfSeq(seq []string) (util.StringSet, bool) {
	set := util.NewStringSet()
	for _, sym := range seq {
		if !a.isNonTerminal(sym) {
			set.Add(sym)
			return set, false
		}
		set.Merge(a.first[sym])
		if !a.nullable.Has(sym) {
			return set, false
		}
	}
	return set, true
}

// computeFollow runs the FOLLOW fixpoint: for every nonterminal B in A -> αBβ,
// FIRST(β) goes into FOLLOW(B), and FOLLOW(A) does too if β can be empty.
func (a *analysis) computeFollow() {
	for _, nt := range a.nonTerms {
		a.follow[nt] = util.NewStringSet()
	}
	a.follow[RootRule].Add(EndSymbol)

	changed := true
	for changed {
		changed = false
		for _, r := range a.rules {
			for i, sym := range r.Symbols {
				if !a.isNonTerminal(sym) {
					continue
				}
				rest, restNullable := a.firstOfSeq(r.Symbols[i+1:])
				if a.follow[sym].Merge(rest) {
					changed = true
				}
				if restNullable && a.follow[sym].Merge(a.follow[r.Name]) {
					changed = true
				}
			}
		}
	}
}

// Follow returns the FOLLOW set of every nonterminal in g, including the root
// rule. It is exposed for diagnostics.
func Follow(g Grammar) (map[string][]string, error) {
	rules, err := augment(g)
	if err != nil {
		return nil, err
	}
	a := analyze(rules)

	out := map[string][]string{}
	for nt, set := range a.follow {
		out[nt] = set.Sorted()
	}
	return out, nil
}

func (a *analysis) String() string {
	var sb strings.Builder
	for _, nt := range a.nonTerms {
		sb.WriteString(fmt.Sprintf("FOLLOW(%s) = %s\n", nt, a.follow[nt].String()))
	}
	return sb.String()
}
