package lr

import (
	"fmt"
	"sort"

	"github.com/dekarrin/rosed"

	"github.com/dekarrin/plyfin/internal/util"
	"github.com/dekarrin/plyfin/plyerr"
)

// Table is a built shift/reduce table. It is read-only once built and may be
// shared between goroutines.
type Table struct {
	rules    []Rule
	terms    []string
	nonTerms []string
	actions  []map[string]Action
	warnings []string

	// kept only for diagnostics; nil on a table decoded from binary.
	states []itemSet
	an     *analysis
}

// Build constructs the table for g.
//
// States are discovered breadth-first from the closure of the root item, with
// the transitions out of each state taken in sorted symbol order, so the same
// grammar always produces the same numbering.
func Build(g Grammar) (*Table, error) {
	rules, err := augment(g)
	if err != nil {
		return nil, err
	}
	an := analyze(rules)

	t := &Table{
		rules:    rules,
		terms:    an.terms,
		nonTerms: an.nonTerms[1:],
		an:       an,
	}

	// 1. canonical collection of item sets
	type transition struct {
		from int
		sym  string
		to   int
	}
	var transitions []transition

	index := map[string]int{}
	start := an.closure([]Item{{Rule: 0}})
	t.states = append(t.states, start)
	index[start.key()] = 0

	for cur := 0; cur < len(t.states); cur++ {
		set := t.states[cur]

		kernels := map[string][]Item{}
		for _, it := range set {
			sym := an.next(it)
			if sym == "" {
				continue
			}
			kernels[sym] = append(kernels[sym], Item{Rule: it.Rule, Dot: it.Dot + 1})
		}

		for _, sym := range util.OrderedKeys(kernels) {
			next := an.closure(kernels[sym])
			k := next.key()
			to, ok := index[k]
			if !ok {
				to = len(t.states)
				t.states = append(t.states, next)
				index[k] = to
			}
			transitions = append(transitions, transition{from: cur, sym: sym, to: to})
		}
	}

	// 2. actions
	t.actions = make([]map[string]Action, len(t.states))
	for i := range t.actions {
		t.actions[i] = map[string]Action{}
	}
	for _, tr := range transitions {
		t.actions[tr.from][tr.sym] = Action{Type: Shift, State: tr.to}
	}

	for i, set := range t.states {
		for _, it := range set {
			if an.next(it) != "" {
				continue
			}

			if it.Rule == 0 {
				if err := t.setReduceLike(i, EndSymbol, Action{Type: Accept}); err != nil {
					return nil, err
				}
				continue
			}

			name := rules[it.Rule].Name
			for _, la := range an.follow[name].Sorted() {
				if err := t.setReduceLike(i, la, Action{Type: Reduce, Rule: it.Rule}); err != nil {
					return nil, err
				}
			}
		}
	}

	return t, nil
}

// setReduceLike adds a reduce or accept action to a state. A shift already in
// place wins and the collision becomes a warning.
func (t *Table) setReduceLike(state int, sym string, act Action) error {
	existing, ok := t.actions[state][sym]
	if !ok {
		t.actions[state][sym] = act
		return nil
	}

	switch existing.Type {
	case Shift:
		t.warnings = append(t.warnings, fmt.Sprintf("shift/reduce conflict in state %d on %s resolved as shift (over %s)", state, sym, t.describe(act)))
		return nil
	default:
		if existing == act {
			return nil
		}
		gErr := plyerr.GrammarSymbols(
			fmt.Sprintf("reduce/reduce conflict in state %d on %s between %s and %s", state, sym, t.describe(existing), t.describe(act)),
			t.conflictSymbols(existing, act)...,
		)
		return gErr
	}
}

func (t *Table) conflictSymbols(acts ...Action) []string {
	var names []string
	for _, a := range acts {
		if a.Type == Reduce {
			names = append(names, t.rules[a.Rule].Name)
		} else if a.Type == Accept {
			names = append(names, t.rules[0].Symbols[0])
		}
	}
	return names
}

func (t *Table) describe(act Action) string {
	switch act.Type {
	case Reduce:
		return "reduce " + t.rules[act.Rule].String()
	case Shift:
		return fmt.Sprintf("shift %d", act.State)
	default:
		return "accept"
	}
}

// Initial returns the index of the starting state; it is always 0.
func (t *Table) Initial() int {
	return 0
}

// Action gives the action for state on lookahead sym. ok is false if the entry
// is an error entry.
func (t *Table) Action(state int, sym string) (act Action, ok bool) {
	if state < 0 || state >= len(t.actions) {
		return Action{}, false
	}
	act, ok = t.actions[state][sym]
	return act, ok
}

// Rule returns the rule with the given index. Index 0 is the root rule.
func (t *Table) Rule(i int) Rule {
	return t.rules[i]
}

// Rules returns the rules of the grammar without the root rule.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules)-1)
	copy(out, t.rules[1:])
	return out
}

// Start returns the name of the start rule.
func (t *Table) Start() string {
	return t.rules[0].Symbols[0]
}

// Terminals returns every terminal that appears in a rule, in order of first
// appearance.
func (t *Table) Terminals() []string {
	return append([]string(nil), t.terms...)
}

// StateCount returns the number of states in the table.
func (t *Table) StateCount() int {
	return len(t.actions)
}

// Warnings returns a message for every shift/reduce conflict that was resolved
// in favor of the shift.
func (t *Table) Warnings() []string {
	return append([]string(nil), t.warnings...)
}

// Expected returns the terminals (and end of input) that have an action in the
// given state.
func (t *Table) Expected(state int) []string {
	if state < 0 || state >= len(t.actions) {
		return nil
	}

	var exp []string
	for _, term := range t.terms {
		if _, ok := t.actions[state][term]; ok {
			exp = append(exp, term)
		}
	}
	if _, ok := t.actions[state][EndSymbol]; ok {
		exp = append(exp, EndSymbol)
	}
	return exp
}

// StateItems returns the items of a state in dotted notation. It returns nil
// for a table that was decoded from binary.
func (t *Table) StateItems(state int) []string {
	if t.an == nil || state < 0 || state >= len(t.states) {
		return nil
	}
	items := make([]string, len(t.states[state]))
	for i, it := range t.states[state] {
		items[i] = t.an.itemString(it)
	}
	return items
}

// String renders the table with one row per state, an ACTION column per
// terminal and a GOTO column per nonterminal.
func (t *Table) String() string {
	allTerms := append(append([]string(nil), t.terms...), EndSymbol)
	nonTerms := append([]string(nil), t.nonTerms...)
	sort.Strings(nonTerms)

	data := [][]string{}

	headers := []string{"S", "|"}
	for _, term := range allTerms {
		headers = append(headers, fmt.Sprintf("A:%s", term))
	}
	headers = append(headers, "|")
	for _, nt := range nonTerms {
		headers = append(headers, fmt.Sprintf("G:%s", nt))
	}
	data = append(data, headers)

	for i := range t.actions {
		row := []string{fmt.Sprintf("%d", i), "|"}

		for _, term := range allTerms {
			cell := ""
			if act, ok := t.actions[i][term]; ok {
				switch act.Type {
				case Accept:
					cell = "acc"
				case Reduce:
					cell = "r" + t.rules[act.Rule].String()
				case Shift:
					cell = fmt.Sprintf("s%d", act.State)
				}
			}
			row = append(row, cell)
		}

		row = append(row, "|")

		for _, nt := range nonTerms {
			cell := ""
			if act, ok := t.actions[i][nt]; ok && act.Type == Shift {
				cell = fmt.Sprintf("%d", act.State)
			}
			row = append(row, cell)
		}

		data = append(data, row)
	}

	return rosed.
		Edit("").
		InsertTableOpts(0, data, 10, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
