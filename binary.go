package plyfin

import (
	"fmt"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/plyfin/internal/lex"
	"github.com/dekarrin/plyfin/internal/lr"
	"github.com/dekarrin/plyfin/internal/util"
)

const binaryFormat = "PLYFIN-1"

// MarshalBinary encodes the compiled grammar, parse table included, so that it
// can be restored with UnmarshalBinary without compiling it again. The trace
// listener is not encoded.
func (g *Grammar) MarshalBinary() ([]byte, error) {
	var data []byte

	data = append(data, rezi.EncString(binaryFormat)...)
	data = append(data, rezi.EncBool(g.opts.AutoFilterTokens)...)
	data = append(data, rezi.EncBool(g.opts.KeepEmptyTrees)...)
	data = append(data, rezi.EncString(g.newlineChar)...)
	data = append(data, rezi.EncString(g.section)...)

	data = append(data, rezi.EncInt(len(g.rules))...)
	for _, r := range g.rules {
		data = append(data, rezi.EncString(r.Name)...)
		data = append(data, rezi.EncBool(r.Expand)...)
		data = append(data, rezi.EncBool(r.Flatten)...)
		data = append(data, rezi.EncBool(r.Expand1)...)
		data = append(data, rezi.EncInt(len(r.Alternatives))...)
		for _, alt := range r.Alternatives {
			data = append(data, rezi.EncInt(len(alt))...)
			for _, sym := range alt {
				data = append(data, rezi.EncString(sym)...)
			}
		}
	}

	data = append(data, rezi.EncInt(len(g.tokens))...)
	for _, t := range g.tokens {
		data = append(data, rezi.EncString(t.Name)...)
		data = append(data, rezi.EncString(t.Pattern)...)
		data = append(data, rezi.EncBool(t.Ignore)...)
		data = append(data, rezi.EncBool(t.Newline)...)
		data = append(data, rezi.EncBool(t.Anonymous)...)
		data = append(data, rezi.EncBool(t.HasSubgrammar)...)
		data = append(data, rezi.EncInt(len(t.Unless))...)
		for _, u := range t.Unless {
			data = append(data, rezi.EncString(u.Name)...)
			data = append(data, rezi.EncString(u.Pattern)...)
		}
	}

	data = append(data, rezi.EncBinary(g.table)...)

	names := util.OrderedKeys(g.subs)
	data = append(data, rezi.EncInt(len(names))...)
	for _, name := range names {
		data = append(data, rezi.EncString(name)...)
		data = append(data, rezi.EncBinary(g.subs[name])...)
	}

	return data, nil
}

// decoder reads values in order from rezi-encoded data.
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := rezi.DecInt(d.data)
	if err != nil {
		d.err = err
		return 0
	}
	d.data = d.data[n:]
	return v
}

// count reads an int that says how many items follow. Every item takes at
// least one byte, so a count larger than the remaining data is an error.
func (d *decoder) count(what string) int {
	v := d.int()
	if d.err == nil && (v < 0 || v > len(d.data)) {
		d.err = fmt.Errorf("bad %s count %d", what, v)
		return 0
	}
	return v
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	v, n, err := rezi.DecString(d.data)
	if err != nil {
		d.err = err
		return ""
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := rezi.DecBool(d.data)
	if err != nil {
		d.err = err
		return false
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) binary(what string, into interface{ UnmarshalBinary([]byte) error }) {
	if d.err != nil {
		return
	}
	n, err := rezi.DecBinary(d.data, into)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", what, err)
		return
	}
	d.data = d.data[n:]
}

// UnmarshalBinary restores a grammar encoded with MarshalBinary. The lexer is
// rebuilt from the stored tokens and the parse table is used as stored.
func (g *Grammar) UnmarshalBinary(data []byte) error {
	d := &decoder{data: data}

	if format := d.str(); d.err == nil && format != binaryFormat {
		return fmt.Errorf("not an encoded grammar: format is %q", format)
	}

	dec := Grammar{subs: map[string]*Grammar{}}
	dec.opts.AutoFilterTokens = d.bool()
	dec.opts.KeepEmptyTrees = d.bool()
	dec.newlineChar = d.str()
	dec.section = d.str()

	dec.rules = make([]Rule, d.count("rule"))
	for i := range dec.rules {
		r := &dec.rules[i]
		r.Name = d.str()
		r.Expand = d.bool()
		r.Flatten = d.bool()
		r.Expand1 = d.bool()
		r.Alternatives = make([][]string, d.count("alternative"))
		for j := range r.Alternatives {
			alt := make([]string, d.count("symbol"))
			for k := range alt {
				alt[k] = d.str()
			}
			r.Alternatives[j] = alt
		}
	}

	dec.tokens = make([]Token, d.count("token"))
	for i := range dec.tokens {
		t := &dec.tokens[i]
		t.Name = d.str()
		t.Pattern = d.str()
		t.Ignore = d.bool()
		t.Newline = d.bool()
		t.Anonymous = d.bool()
		t.HasSubgrammar = d.bool()
		if n := d.count("unless"); n > 0 {
			t.Unless = make([]lex.Unless, n)
			for j := range t.Unless {
				t.Unless[j].Name = d.str()
				t.Unless[j].Pattern = d.str()
			}
		}
	}

	dec.table = &lr.Table{}
	d.binary("parse table", dec.table)

	subCount := d.count("subgrammar")
	for i := 0; i < subCount && d.err == nil; i++ {
		name := d.str()
		sub := &Grammar{}
		d.binary("subgrammar of "+name, sub)
		dec.subs[name] = sub
	}

	if d.err != nil {
		return fmt.Errorf("decoding grammar: %w", d.err)
	}

	for _, t := range dec.tokens {
		if t.HasSubgrammar && dec.subs[t.Name] == nil {
			return fmt.Errorf("decoding grammar: subgrammar of token %s is missing", t.Name)
		}
	}

	if err := dec.init(); err != nil {
		return fmt.Errorf("decoding grammar: %w", err)
	}

	*g = dec
	return nil
}
