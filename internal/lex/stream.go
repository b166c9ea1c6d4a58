package lex

import (
	"strings"

	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

// Stream produces tokens from one input. It is not safe for concurrent use;
// create one Stream per input with Lexer.Lex.
type Stream struct {
	lx    *Lexer
	input []rune
	pos   int

	// line tracking only advances on %newline tokens. lineStartAt is the
	// offset of the last newline char seen, so that columns are 1-based.
	line        int
	lineStartAt int

	count    int
	lastType string
	done     bool
	err      error
}

// Next returns the next token that is not ignored. ok is false once the input
// is exhausted; after an error, every call returns the same error.
func (s *Stream) Next() (tok stree.Token, ok bool, err error) {
	for {
		if s.err != nil {
			return stree.Token{}, false, s.err
		}
		if s.done || s.pos >= len(s.input) {
			s.done = true
			return stree.Token{}, false, nil
		}

		idx, length, err := s.lx.match(s.input, s.pos)
		if err != nil {
			s.err = err
			return stree.Token{}, false, err
		}
		if length == 0 {
			s.err = &plyerr.TokenizeError{
				Char:     s.input[s.pos],
				Pos:      s.pos,
				Line:     s.line,
				Column:   s.pos - s.lineStartAt,
				LastType: s.lastType,
			}
			return stree.Token{}, false, s.err
		}

		text := string(s.input[s.pos : s.pos+length])
		def := s.lx.defs[idx]

		tokType, err := s.lx.classify(idx, text)
		if err != nil {
			s.err = err
			return stree.Token{}, false, err
		}

		s.count++
		tok = stree.Token{
			Value:  text,
			Type:   tokType,
			Line:   s.line,
			Column: s.pos - s.lineStartAt,
			Pos:    s.pos,
			Index:  s.count,
		}

		if def.Newline {
			s.handleNewlines(text)
		}
		s.pos += length

		if s.lx.listener != nil {
			s.lx.listener(tok)
		}

		if def.Ignore {
			continue
		}

		s.lastType = tok.Type
		return tok, true, nil
	}
}

// Line returns the line the stream is currently on.
func (s *Stream) Line() int {
	return s.line
}

func (s *Stream) handleNewlines(text string) {
	nl := s.lx.newlineChar
	n := strings.Count(text, nl)
	if n == 0 {
		return
	}
	s.line += n

	last := strings.LastIndex(text, nl)
	// LastIndex is a byte offset; convert to runes.
	s.lineStartAt = s.pos + len([]rune(text[:last]))
}
