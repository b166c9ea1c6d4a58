package stree

import "encoding/json"

// Map converts the tree into nested maps and slices that any generic encoder
// can serialize. Trees become {"head": ..., "tail": [...]}; tokens become
// {"type", "value", "line", "column"}.
func (t *Tree) Map() map[string]any {
	tail := make([]any, len(t.Tail))
	for i := range t.Tail {
		switch c := t.Tail[i].(type) {
		case *Tree:
			tail[i] = c.Map()
		case Token:
			tail[i] = c.Map()
		}
	}
	return map[string]any{
		"head": t.Head,
		"tail": tail,
	}
}

// Map converts the token into a map for generic encoders.
func (tok Token) Map() map[string]any {
	m := map[string]any{
		"type":  tok.Type,
		"value": tok.Value,
	}
	if tok.Line > 0 {
		m["line"] = tok.Line
	}
	if tok.Column > 0 {
		m["column"] = tok.Column
	}
	return m
}

// MarshalJSON encodes the tree in the Map form.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Map())
}

// MarshalYAML returns the Map form for YAML encoders.
func (t *Tree) MarshalYAML() (interface{}, error) {
	return t.Map(), nil
}
