package metagrammar

import "github.com/dekarrin/plyfin/internal/lex"

// Token types of grammar source.
const (
	TRuleName  = "RULENAME"
	TToken     = "TOKEN"
	TOption    = "OPTION"
	TOper      = "OPER"
	TPermSep   = "PERMSEP"
	TPerm      = "PERM"
	TOr        = "OR"
	TLPar      = "LPAR"
	TRPar      = "RPAR"
	TColon     = "COLON"
	TSemicolon = "SEMICOLON"
	TLCurly    = "LCURLY"
	TRCurly    = "RCURLY"
	TRegexp    = "REGEXP"
	TSection   = "SECTION"
)

var lexDefs = []lex.Def{
	{Name: TRuleName, Pattern: `[@#?]?[a-z_][a-z_0-9]*`},
	{Name: TToken, Pattern: `[A-Z_][A-Z_0-9]*`},
	{Name: TOption, Pattern: `%[a-z_]+`},
	{Name: TOper, Pattern: `[?*+]`},
	{Name: TPermSep, Pattern: `\^\^`},
	{Name: TPerm, Pattern: `\^`},
	{Name: TOr, Pattern: `\|`},
	{Name: TLPar, Pattern: `\(`},
	{Name: TRPar, Pattern: `\)`},
	{Name: TColon, Pattern: `:`},
	{Name: TSemicolon, Pattern: `;`},
	{Name: TLCurly, Pattern: `\{`},
	{Name: TRCurly, Pattern: `\}`},
	{Name: TRegexp, Pattern: `'(.|\n)*?[^\\]'`, Newline: true},
	{Name: TSection, Pattern: `###(.|\n)*`, Newline: true},
	{Name: "LINE_COMMENT", Pattern: `//[^\n]*`, Ignore: true},
	{Name: "BLOCK_COMMENT", Pattern: `/\*(.|\n)*?\*/`, Ignore: true, Newline: true},
	{Name: "NL", Pattern: `\n`, Ignore: true, Newline: true},
	{Name: "WS", Pattern: `[ \t\r]+`, Ignore: true},
}
