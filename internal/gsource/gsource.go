// Package gsource loads grammar source text from files, including grammars
// embedded in markdown documents.
package gsource

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	mkast "github.com/gomarkdown/markdown/ast"
	mkparser "github.com/gomarkdown/markdown/parser"
	"github.com/spf13/afero"

	"github.com/dekarrin/plyfin"
)

// CodeBlockInfo is the info string that marks a fenced code block in a
// markdown file as holding grammar text.
const CodeBlockInfo = "plyfin"

// Source is grammar text loaded from a file along with the options it is to be
// compiled with.
type Source struct {
	// Path is the file the grammar was read from.
	Path string

	// Text is the grammar source.
	Text string

	// Options is DefaultOptions with any overrides from OptionsPath applied.
	Options plyfin.Options

	// OptionsPath is the options file that was applied, or "" if there was
	// none.
	OptionsPath string
}

type blockScanner bool

func (bs blockScanner) RenderNode(w io.Writer, node mkast.Node, entering bool) mkast.WalkStatus {
	if !entering {
		return mkast.GoToNext
	}

	codeBlock, ok := node.(*mkast.CodeBlock)
	if !ok || codeBlock == nil {
		return mkast.GoToNext
	}

	if strings.ToLower(strings.TrimSpace(string(codeBlock.Info))) == CodeBlockInfo {
		w.Write(codeBlock.Literal)
		if !strings.HasSuffix(string(codeBlock.Literal), "\n") {
			w.Write([]byte{'\n'})
		}
	}
	return mkast.GoToNext
}

func (bs blockScanner) RenderHeader(w io.Writer, ast mkast.Node) {}
func (bs blockScanner) RenderFooter(w io.Writer, ast mkast.Node) {}

// FromMarkdown returns the contents of every plyfin code block in mdText, in
// document order.
func FromMarkdown(mdText []byte) string {
	doc := markdown.Parse(mdText, mkparser.NewWithExtensions(mkparser.CommonExtensions))
	var scanner blockScanner
	return string(markdown.Render(doc, scanner))
}

// OptionsPathFor returns the path of the options file that goes with the
// grammar file at path: the same name with a .toml extension.
func OptionsPathFor(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".toml"
}

// Load reads the grammar at path from fsys. Files ending in .md have their
// plyfin code blocks extracted; anything else is read as grammar text as-is.
// If an options file for the grammar exists, it is applied over
// plyfin.DefaultOptions.
func Load(fsys afero.Fs, path string) (Source, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Source{}, fmt.Errorf("read grammar: %w", err)
	}

	src := Source{Path: path, Options: plyfin.DefaultOptions()}

	if strings.EqualFold(filepath.Ext(path), ".md") {
		src.Text = FromMarkdown(data)
		if strings.TrimSpace(src.Text) == "" {
			return Source{}, fmt.Errorf("%s has no %q code blocks", path, CodeBlockInfo)
		}
	} else {
		src.Text = string(data)
	}

	optsPath := OptionsPathFor(path)
	if optsPath == path {
		return src, nil
	}
	optsData, err := afero.ReadFile(fsys, optsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return src, nil
		}
		return Source{}, fmt.Errorf("read options: %w", err)
	}

	src.Options, err = plyfin.UnmarshalOptions(optsData, src.Options)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", optsPath, err)
	}
	src.OptionsPath = optsPath

	return src, nil
}
