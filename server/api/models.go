package api

import (
	"time"

	"github.com/dekarrin/plyfin"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/stree"
)

// note that these are *not* the DAO models; those are distinct and closer to
// the DB format they are in. Rather these are the models that are received from
// and sent to the client.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// missing gives the name of the first empty field, or "" if both are set.
func (lr LoginRequest) missing() string {
	if lr.Username == "" {
		return "username"
	}
	if lr.Password == "" {
		return "password"
	}
	return ""
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type InfoModel struct {
	Version struct {
		Server string `json:"server"`
		Plyfin string `json:"plyfin"`
	} `json:"version"`
}

// OptionsModel holds compile options. Unset fields take their default value.
type OptionsModel struct {
	AutoFilterTokens *bool `json:"auto_filter_tokens,omitempty"`
	KeepEmptyTrees   *bool `json:"keep_empty_trees,omitempty"`
}

func (om *OptionsModel) apply(base plyfin.Options) plyfin.Options {
	if om == nil {
		return base
	}
	if om.AutoFilterTokens != nil {
		base.AutoFilterTokens = *om.AutoFilterTokens
	}
	if om.KeepEmptyTrees != nil {
		base.KeepEmptyTrees = *om.KeepEmptyTrees
	}
	return base
}

type GrammarRequest struct {
	Name    string        `json:"name"`
	Source  string        `json:"source"`
	Options *OptionsModel `json:"options,omitempty"`
}

type GrammarModel struct {
	URI     string       `json:"uri"`
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Source  string       `json:"source,omitempty"`
	Options OptionsModel `json:"options"`
	Creator string       `json:"creator"`
	Created string       `json:"created"`
}

func grammarModel(rec dao.Grammar, withSource bool) GrammarModel {
	filter, keep := rec.AutoFilterTokens, rec.KeepEmptyTrees
	m := GrammarModel{
		URI:     PathPrefix + "/grammars/" + rec.ID.String(),
		ID:      rec.ID.String(),
		Name:    rec.Name,
		Options: OptionsModel{AutoFilterTokens: &filter, KeepEmptyTrees: &keep},
		Creator: rec.Creator.String(),
		Created: rec.Created.Format(time.RFC3339),
	}
	if withSource {
		m.Source = rec.Source
	}
	return m
}

type InputRequest struct {
	Text string `json:"text"`
}

type ParseResponse struct {
	Tree    *stree.Tree `json:"tree"`
	Compact string      `json:"compact"`
}

type TokenModel struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func tokenModels(toks []stree.Token) []TokenModel {
	models := make([]TokenModel, len(toks))
	for i := range toks {
		models[i] = TokenModel{
			Type:   toks[i].Type,
			Value:  toks[i].Value,
			Line:   toks[i].Line,
			Column: toks[i].Column,
		}
	}
	return models
}

// SyntaxErrorModel is one entry in the details of a rejected parse.
type SyntaxErrorModel struct {
	Message  string      `json:"message"`
	Token    *TokenModel `json:"token,omitempty"`
	AtEnd    bool        `json:"at_end,omitempty"`
	Expected []string    `json:"expected,omitempty"`
}

func syntaxErrorModels(pErr *plyerr.ParseError) []SyntaxErrorModel {
	models := make([]SyntaxErrorModel, len(pErr.Errors))
	for i, se := range pErr.Errors {
		models[i] = SyntaxErrorModel{
			Message:  se.Error(),
			AtEnd:    se.AtEnd,
			Expected: se.Expected,
		}
		if !se.AtEnd {
			tok := tokenModels([]stree.Token{se.Token})[0]
			models[i].Token = &tok
		}
	}
	return models
}

// TokenizeErrorModel is the details of input that could not be split into
// tokens.
type TokenizeErrorModel struct {
	Message string `json:"message"`
	Char    string `json:"char"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// GrammarErrorModel is the details of a grammar that did not compile.
type GrammarErrorModel struct {
	Message string   `json:"message"`
	Symbols []string `json:"symbols,omitempty"`
	Line    int      `json:"line,omitempty"`
	Column  int      `json:"column,omitempty"`
}
