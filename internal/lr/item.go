package lr

import (
	"fmt"
	"sort"
	"strings"
)

// Item is an LR(0) item: a rule with a position in its symbols. Dot is the
// number of symbols already matched.
type Item struct {
	Rule int
	Dot  int
}

// itemSet is a closed set of items, kept sorted so that equal sets have equal
// keys.
type itemSet []Item

func (set itemSet) sort() {
	sort.Slice(set, func(i, j int) bool {
		if set[i].Rule != set[j].Rule {
			return set[i].Rule < set[j].Rule
		}
		return set[i].Dot < set[j].Dot
	})
}

func (set itemSet) key() string {
	var sb strings.Builder
	for i, it := range set {
		if i > 0 {
			sb.WriteRune(',')
		}
		sb.WriteString(fmt.Sprintf("%d.%d", it.Rule, it.Dot))
	}
	return sb.String()
}

// next returns the symbol after the dot, or "" if the item is satisfied.
func (a *analysis) next(it Item) string {
	syms := a.rules[it.Rule].Symbols
	if it.Dot >= len(syms) {
		return ""
	}
	return syms[it.Dot]
}

// closure adds the initial items of every rule that can start at the dot of
// an item already in the set.
func (a *analysis) closure(kernel []Item) itemSet {
	seen := map[Item]bool{}
	var set itemSet
	queue := append([]Item(nil), kernel...)

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if seen[it] {
			continue
		}
		seen[it] = true
		set = append(set, it)

		sym := a.next(it)
		if sym == "" {
			continue
		}
		for _, ri := range a.byName[sym] {
			queue = append(queue, Item{Rule: ri})
		}
	}

	set.sort()
	return set
}

// itemString shows an item in dotted form, e.g. "list -> list . COMMA item".
func (a *analysis) itemString(it Item) string {
	r := a.rules[it.Rule]
	left := strings.Join(r.Symbols[:it.Dot], " ")
	right := strings.Join(r.Symbols[it.Dot:], " ")

	if len(left) > 0 {
		left = left + " "
	}
	if len(right) > 0 {
		right = " " + right
	}
	return fmt.Sprintf("%s -> %s.%s", r.Name, left, right)
}
