package simplify

import (
	"strings"

	"github.com/dekarrin/plyfin/internal/metagrammar"
	"github.com/dekarrin/plyfin/internal/util"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

// StartRule is the rule every grammar must define.
const StartRule = "start"

const (
	modIgnore  = "%ignore"
	modNewline = "%newline"
	modUnless  = "%unless"
)

const ruleModChars = "@#?"

// splitRuleName separates the modifier prefix of a rule name from the name.
func splitRuleName(s string) (mods, name string) {
	i := 0
	for i < len(s) && strings.ContainsRune(ruleModChars, rune(s[i])) {
		i++
	}
	return s[:i], s[i:]
}

func errAt(tok stree.Token, msg string, symbols ...string) *plyerr.GrammarError {
	return &plyerr.GrammarError{Msg: msg, Symbols: symbols, Line: tok.Line, Column: tok.Column}
}

// use is the first place a name was referred to.
type use struct {
	name string
	at   stree.Token
}

type verifier struct {
	rules     map[string]stree.Token
	tokens    map[string]stree.Token
	fragments map[string]stree.Token

	ruleUses     []use
	tokenUses    []use
	composedUses []use

	err *plyerr.GrammarError
}

func (vf *verifier) fail(e *plyerr.GrammarError) {
	if vf.err == nil {
		vf.err = e
	}
}

func (vf *verifier) defineToken(nameTok stree.Token) {
	name := nameTok.Value
	if _, ok := vf.tokens[name]; ok {
		vf.fail(errAt(nameTok, "token defined more than once", name))
	} else if _, ok := vf.fragments[name]; ok {
		vf.fail(errAt(nameTok, "token defined more than once", name))
	}
	vf.tokens[name] = nameTok
}

// verify checks that a grammar tree refers only to what it defines and uses
// only known options and modifiers. Nested grammars are not examined; they are
// verified when they are simplified themselves.
func verify(ext *stree.Tree) error {
	vf := &verifier{
		rules:     map[string]stree.Token{},
		tokens:    map[string]stree.Token{},
		fragments: map[string]stree.Token{},
	}

	grammar := ext.Tail[0].(*stree.Tree)
	for _, n := range grammar.Tail {
		def := n.(*stree.Tree)
		switch def.Head {
		case "ruledef":
			vf.ruledef(def)
		case "tokendef":
			vf.tokendef(def, false)
		case "fragmentdef":
			nameTok := def.Tail[0].(stree.Token)
			if _, ok := vf.tokens[nameTok.Value]; ok {
				vf.fail(errAt(nameTok, "token defined more than once", nameTok.Value))
			}
			vf.fragments[nameTok.Value] = nameTok
			vf.tokenValue(def.Tail[1].(*stree.Tree))
		case "optiondef":
			vf.optiondef(def)
		}
	}
	if vf.err != nil {
		return vf.err
	}

	if err := vf.checkUses(); err != nil {
		return err
	}

	if _, ok := vf.rules[StartRule]; !ok {
		return plyerr.GrammarSymbols("grammar has no start rule", StartRule)
	}
	return nil
}

func (vf *verifier) ruledef(def *stree.Tree) {
	nameTok := def.Tail[0].(stree.Token)
	mods, name := splitRuleName(nameTok.Value)

	if len(mods) > 1 && strings.ContainsRune(mods, '@') && strings.ContainsRune(mods, '#') {
		vf.fail(errAt(nameTok, "rule cannot be both expanded and flattened", name))
	} else if len(mods) > 1 {
		vf.fail(errAt(nameTok, "rule has more than one modifier", name))
	}
	if _, ok := vf.rules[name]; ok {
		vf.fail(errAt(nameTok, "rule defined more than once", name))
	}
	vf.rules[name] = nameTok

	for _, leaf := range def.Tail[1].(*stree.Tree).Leaves() {
		switch leaf.Type {
		case metagrammar.TRuleName:
			if mods, _ := splitRuleName(leaf.Value); mods != "" {
				vf.fail(errAt(leaf, "rule modifiers are only allowed where a rule is defined", leaf.Value))
			}
			vf.ruleUses = append(vf.ruleUses, use{leaf.Value, leaf})
		case metagrammar.TToken:
			vf.tokenUses = append(vf.tokenUses, use{leaf.Value, leaf})
		}
	}
}

func (vf *verifier) tokendef(def *stree.Tree, nested bool) {
	nameTok := def.Tail[0].(stree.Token)
	vf.defineToken(nameTok)
	vf.tokenValue(def.Tail[1].(*stree.Tree))

	if len(def.Tail) < 3 {
		return
	}
	extra := def.Tail[2].(*stree.Tree)
	if extra.Head != "tokenmods" {
		// a subgrammar
		if nested {
			vf.fail(errAt(nameTok, "unless alternates cannot have a subgrammar", nameTok.Value))
		}
		return
	}
	if nested {
		vf.fail(errAt(nameTok, "unless alternates cannot have modifiers", nameTok.Value))
		return
	}

	for _, m := range extra.Tail {
		mod := m.(*stree.Tree)
		opt := mod.Tail[0].(stree.Token)
		list := mod.Tail[1].(*stree.Tree)

		switch opt.Value {
		case modIgnore, modNewline:
			if len(list.Tail) > 0 {
				vf.fail(errAt(opt, opt.Value+" does not take token definitions", nameTok.Value))
			}
		case modUnless:
			for _, sub := range list.Tail {
				vf.tokendef(sub.(*stree.Tree), true)
			}
		default:
			vf.fail(errAt(opt, "unknown token modifier "+opt.Value, nameTok.Value))
		}
	}
}

func (vf *verifier) tokenValue(value *stree.Tree) {
	for _, n := range value.Tail {
		if leaf, ok := n.(stree.Token); ok && leaf.Type == metagrammar.TToken {
			vf.composedUses = append(vf.composedUses, use{leaf.Value, leaf})
		}
	}
}

func (vf *verifier) optiondef(def *stree.Tree) {
	opt := def.Tail[0].(stree.Token)
	value := def.Tail[1].(stree.Token)

	if strings.TrimPrefix(opt.Value, "%") != OptNewlineChar {
		vf.fail(errAt(opt, "unknown option "+opt.Value, opt.Value))
		return
	}
	if value.Type != metagrammar.TRegexp {
		vf.fail(errAt(value, "option "+opt.Value+" needs a quoted value", opt.Value))
	}
}

func (vf *verifier) checkUses() error {
	var undefTokens, fragUses, undefRules []use

	for _, u := range vf.tokenUses {
		if _, ok := vf.tokens[u.name]; ok {
			continue
		}
		if _, ok := vf.fragments[u.name]; ok {
			fragUses = append(fragUses, u)
		} else {
			undefTokens = append(undefTokens, u)
		}
	}
	for _, u := range vf.composedUses {
		_, isTok := vf.tokens[u.name]
		_, isFrag := vf.fragments[u.name]
		if !isTok && !isFrag {
			undefTokens = append(undefTokens, u)
		}
	}
	for _, u := range vf.ruleUses {
		if _, ok := vf.rules[u.name]; !ok {
			undefRules = append(undefRules, u)
		}
	}

	if len(undefTokens) > 0 {
		return usesError("undefined tokens", undefTokens)
	}
	if len(undefRules) > 0 {
		return usesError("undefined rules", undefRules)
	}
	if len(fragUses) > 0 {
		return usesError("fragments can only be used inside token values", fragUses)
	}
	return nil
}

// usesError reports every distinct name in uses and locates the error at the
// first use.
func usesError(msg string, uses []use) error {
	names := util.StringSet{}
	for _, u := range uses {
		names.Add(u.name)
	}
	return errAt(uses[0].at, msg, names.Sorted()...)
}
