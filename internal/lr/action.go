package lr

import "fmt"

type ActionType int

const (
	Shift ActionType = iota
	Reduce
	Accept
)

func (at ActionType) String() string {
	switch at {
	case Shift:
		return "SHIFT"
	case Reduce:
		return "REDUCE"
	case Accept:
		return "ACCEPT"
	default:
		return fmt.Sprintf("ActionType(%d)", int(at))
	}
}

// Action is one entry of the table. Shifts on nonterminals are the goto
// entries followed after a reduce.
type Action struct {
	Type ActionType

	// State is the state to go to. It is used only when Type is Shift.
	State int

	// Rule is the index of the rule to reduce by. It is used only when Type is
	// Reduce.
	Rule int
}

func (act Action) String() string {
	switch act.Type {
	case Shift:
		return fmt.Sprintf("ACTION<shift %d>", act.State)
	case Reduce:
		return fmt.Sprintf("ACTION<reduce %d>", act.Rule)
	case Accept:
		return "ACTION<accept>"
	default:
		return "ACTION<unknown>"
	}
}
