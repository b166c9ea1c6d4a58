package lr

import (
	"fmt"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/plyfin/internal/util"
)

// MarshalBinary encodes the rules, action entries and warnings of the table.
// Item sets are not kept.
func (t *Table) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncInt(len(t.rules))...)
	for _, r := range t.rules {
		data = append(data, rezi.EncString(r.Name)...)
		data = append(data, rezi.EncInt(len(r.Symbols))...)
		for _, sym := range r.Symbols {
			data = append(data, rezi.EncString(sym)...)
		}
	}

	data = append(data, rezi.EncInt(len(t.actions))...)
	for _, row := range t.actions {
		keys := util.OrderedKeys(row)
		data = append(data, rezi.EncInt(len(keys))...)
		for _, sym := range keys {
			act := row[sym]
			data = append(data, rezi.EncString(sym)...)
			data = append(data, rezi.EncInt(int(act.Type))...)
			data = append(data, rezi.EncInt(act.State)...)
			data = append(data, rezi.EncInt(act.Rule)...)
		}
	}

	data = append(data, rezi.EncInt(len(t.warnings))...)
	for _, w := range t.warnings {
		data = append(data, rezi.EncString(w)...)
	}

	return data, nil
}

// UnmarshalBinary decodes a table encoded with MarshalBinary.
func (t *Table) UnmarshalBinary(data []byte) error {
	var n int
	var err error

	readInt := func() (int, error) {
		v, read, err := rezi.DecInt(data)
		if err != nil {
			return 0, err
		}
		data = data[read:]
		return v, nil
	}
	readCount := func() (int, error) {
		v, err := readInt()
		if err == nil && (v < 0 || v > len(data)) {
			err = fmt.Errorf("bad count %d", v)
		}
		return v, err
	}
	readString := func() (string, error) {
		v, read, err := rezi.DecString(data)
		if err != nil {
			return "", err
		}
		data = data[read:]
		return v, nil
	}

	if n, err = readCount(); err != nil {
		return fmt.Errorf("rule count: %w", err)
	}
	rules := make([]Rule, n)
	for i := range rules {
		if rules[i].Name, err = readString(); err != nil {
			return fmt.Errorf("rule %d name: %w", i, err)
		}
		symCount, err := readCount()
		if err != nil {
			return fmt.Errorf("rule %d symbol count: %w", i, err)
		}
		rules[i].Symbols = make([]string, symCount)
		for j := range rules[i].Symbols {
			if rules[i].Symbols[j], err = readString(); err != nil {
				return fmt.Errorf("rule %d symbol %d: %w", i, j, err)
			}
		}
	}
	if len(rules) < 1 || rules[0].Name != RootRule || len(rules[0].Symbols) != 1 {
		return fmt.Errorf("first rule is not the root rule")
	}

	if n, err = readCount(); err != nil {
		return fmt.Errorf("state count: %w", err)
	}
	actions := make([]map[string]Action, n)
	for i := range actions {
		entries, err := readCount()
		if err != nil {
			return fmt.Errorf("state %d entry count: %w", i, err)
		}
		actions[i] = make(map[string]Action, entries)
		for j := 0; j < entries; j++ {
			sym, err := readString()
			if err != nil {
				return fmt.Errorf("state %d entry %d: %w", i, j, err)
			}
			var act Action
			var typ int
			if typ, err = readInt(); err != nil {
				return fmt.Errorf("state %d entry %d type: %w", i, j, err)
			}
			act.Type = ActionType(typ)
			if act.State, err = readInt(); err != nil {
				return fmt.Errorf("state %d entry %d target: %w", i, j, err)
			}
			if act.Rule, err = readInt(); err != nil {
				return fmt.Errorf("state %d entry %d rule: %w", i, j, err)
			}
			if act.Rule < 0 || act.Rule >= len(rules) || act.State < 0 || act.State >= n {
				return fmt.Errorf("state %d entry %d: out of range", i, j)
			}
			actions[i][sym] = act
		}
	}

	if n, err = readCount(); err != nil {
		return fmt.Errorf("warning count: %w", err)
	}
	warnings := make([]string, n)
	for i := range warnings {
		if warnings[i], err = readString(); err != nil {
			return fmt.Errorf("warning %d: %w", i, err)
		}
	}

	an := analyze(rules)
	*t = Table{
		rules:    rules,
		terms:    an.terms,
		nonTerms: an.nonTerms[1:],
		actions:  actions,
		warnings: warnings,
	}
	return nil
}
