package simplify

import (
	"strings"

	"github.com/dekarrin/plyfin/internal/lex"
	"github.com/dekarrin/plyfin/internal/metagrammar"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

// Source parses grammar source text and simplifies it.
func Source(src string) (*Grammar, error) {
	tree, err := metagrammar.Parse(src)
	if err != nil {
		return nil, err
	}
	return Simplify(tree)
}

// Simplify rewrites a tree made by metagrammar.Parse into a Grammar. The tree
// is modified in place and should not be used afterwards.
//
// Each token defined with a nested grammar has that grammar simplified on its
// own and attached to its TokenDef.
func Simplify(tree *stree.Tree) (*Grammar, error) {
	if tree.Head != hExtGrammar || len(tree.Tail) == 0 {
		return nil, plyerr.Grammar("not a grammar tree: root is %q", tree.Head)
	}
	if g, ok := tree.Tail[0].(*stree.Tree); !ok || g.Head != hGrammar {
		return nil, plyerr.Grammar("not a grammar tree: no grammar node")
	}

	if err := verify(tree); err != nil {
		return nil, err
	}

	subs, err := extractSubgrammars(tree)
	if err != nil {
		return nil, err
	}

	newDesugarer(false).run(tree)
	newDesugarer(true).run(tree)

	if err := composeTokens(tree); err != nil {
		return nil, err
	}
	nameAnonymousTokens(tree)

	return lower(tree, subs)
}

// extractSubgrammars removes every nested grammar from the tokens of the
// grammar and returns them simplified, keyed by token name.
func extractSubgrammars(ext *stree.Tree) (map[string]*Grammar, error) {
	subs := map[string]*Grammar{}

	grammar := ext.Tail[0].(*stree.Tree)
	for _, n := range grammar.Tail {
		def := n.(*stree.Tree)
		if def.Head != hTokenDef || len(def.Tail) < 3 {
			continue
		}
		sub := def.Tail[2].(*stree.Tree)
		if sub.Head != hSubgrammar {
			continue
		}

		g, err := Simplify(sub.Tail[0].(*stree.Tree))
		if err != nil {
			return nil, err
		}
		subs[def.Tail[0].(stree.Token).Value] = g
		def.Tail = def.Tail[:2]
	}

	return subs, nil
}

type tokenMod struct {
	name string
	defs []TokenDef
}

// lower converts the fully rewritten tree into definitions.
func lower(ext *stree.Tree, subs map[string]*Grammar) (*Grammar, error) {
	var lowerErr error

	tr := stree.NewTransformer().
		On(hRule, func(_ string, tail []any) any {
			seq := make([]string, 0, len(tail))
			for _, c := range tail {
				switch c := c.(type) {
				case stree.Token:
					seq = append(seq, c.Value)
				case []string:
					seq = append(seq, c...)
				}
			}
			return seq
		}).
		On(hRulesList, func(_ string, tail []any) any {
			alts := make([][]string, 0, len(tail))
			for _, c := range tail {
				switch c := c.(type) {
				case stree.Token:
					alts = append(alts, []string{c.Value})
				case []string:
					alts = append(alts, c)
				case [][]string:
					alts = append(alts, c...)
				}
			}
			return alts
		}).
		On(hRuleDef, func(_ string, tail []any) any {
			mods, name := splitRuleName(tail[0].(stree.Token).Value)
			return RuleDef{
				Name:         name,
				Alternatives: tail[1].([][]string),
				Expand:       strings.ContainsRune(mods, '@'),
				Flatten:      strings.ContainsRune(mods, '#'),
				Expand1:      strings.ContainsRune(mods, '?'),
			}
		}).
		On(hModTokens, func(_ string, tail []any) any {
			defs := make([]TokenDef, len(tail))
			for i := range tail {
				defs[i] = tail[i].(TokenDef)
			}
			return defs
		}).
		On(hTokenMod, func(_ string, tail []any) any {
			return tokenMod{name: tail[0].(stree.Token).Value, defs: tail[1].([]TokenDef)}
		}).
		On(hTokenMods, func(_ string, tail []any) any {
			mods := make([]tokenMod, len(tail))
			for i := range tail {
				mods[i] = tail[i].(tokenMod)
			}
			return mods
		}).
		On(hTokenDef, func(_ string, tail []any) any {
			td := TokenDef{
				Name:    tail[0].(stree.Token).Value,
				Pattern: tail[1].(stree.Token).Value,
			}
			if len(tail) > 2 {
				for _, m := range tail[2].([]tokenMod) {
					switch m.name {
					case modIgnore:
						td.Ignore = true
					case modNewline:
						td.Newline = true
					case modUnless:
						for _, alt := range m.defs {
							td.Unless = append(td.Unless, lex.Unless{Name: alt.Name, Pattern: alt.Pattern})
						}
					}
				}
			}
			td.Subgrammar = subs[td.Name]
			return td
		}).
		On(hAnonTokenDef, func(_ string, tail []any) any {
			return TokenDef{
				Name:      tail[0].(stree.Token).Value,
				Pattern:   tail[1].(stree.Token).Value,
				Anonymous: true,
			}
		}).
		On(hFragmentDef, func(_ string, tail []any) any {
			return FragmentDef{Name: tail[0].(stree.Token).Value, Pattern: tail[1].(stree.Token).Value}
		}).
		On(hOptionDef, func(_ string, tail []any) any {
			opt := tail[0].(stree.Token)
			value, err := unquoteValue(tail[1].(stree.Token).Value)
			if err != nil && lowerErr == nil {
				lowerErr = plyerr.WrapGrammarAt(err, opt.Line, opt.Column, "bad value for option %s", opt.Value)
			}
			return OptionDef{Name: strings.TrimPrefix(opt.Value, "%"), Value: value}
		}).
		On(hGrammar, func(_ string, tail []any) any {
			defs := make([]Def, 0, len(tail))
			for _, c := range tail {
				if d, ok := c.(Def); ok {
					defs = append(defs, d)
				}
			}
			return defs
		}).
		On(hExtGrammar, func(_ string, tail []any) any {
			g := &Grammar{Defs: tail[0].([]Def)}
			if len(tail) > 1 {
				g.Section = tail[1].(stree.Token).Value
			}
			return g
		})

	g := tr.Transform(ext).(*Grammar)
	if lowerErr != nil {
		return nil, lowerErr
	}
	return g, nil
}
