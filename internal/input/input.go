// Package input reads lines of text to be parsed from a terminal or any other
// stream.
package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Reader reads one line of input at a time.
type Reader interface {
	// ReadLine blocks until a line is available and returns it without its
	// line ending. At end of input it returns io.EOF.
	ReadLine() (string, error)

	// AllowBlank sets whether ReadLine may return lines that are empty or
	// whitespace only. By default they are skipped.
	AllowBlank(allow bool)

	Close() error
}

// DirectReader reads lines from any io.Reader. It does not handle terminal
// editing sequences, so it is meant for piped input.
//
// Create one with [NewDirectReader].
type DirectReader struct {
	r             *bufio.Reader
	blanksAllowed bool
}

// InteractiveReader reads lines from stdin through readline, which gives line
// editing and history. It should only be used when stdin is a TTY.
//
// Create one with [NewInteractiveReader].
type InteractiveReader struct {
	rl            *readline.Instance
	blanksAllowed bool
	prompt        string
}

// NewDirectReader creates a DirectReader with a buffered reader over r.
func NewDirectReader(r io.Reader) *DirectReader {
	return &DirectReader{
		r: bufio.NewReader(r),
	}
}

// NewInteractiveReader initializes readline with the given prompt and history
// file. historyFile may be "" to keep no history. Close must be called on the
// returned reader to restore the terminal.
func NewInteractiveReader(prompt string, historyFile string) (*InteractiveReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &InteractiveReader{
		rl:     rl,
		prompt: prompt,
	}, nil
}

// Close does nothing; the DirectReader does not own its stream.
func (dr *DirectReader) Close() error {
	return nil
}

// Close tears down readline.
func (ir *InteractiveReader) Close() error {
	return ir.rl.Close()
}

// ReadLine reads the next line. Trailing whitespace is removed, leading
// whitespace is kept since it may matter to the grammar.
func (dr *DirectReader) ReadLine() (string, error) {
	for {
		line, err := dr.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		line = strings.TrimRight(line, " \t\r\n")
		if line != "" || dr.blanksAllowed {
			return line, nil
		}
	}
}

// ReadLine reads the next line typed at the terminal. An interrupt (Ctrl-C)
// on an empty line is reported as io.EOF.
func (ir *InteractiveReader) ReadLine() (string, error) {
	for {
		line, err := ir.rl.Readline()
		if err == readline.ErrInterrupt {
			if line == "" {
				return "", io.EOF
			}
			continue
		}
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		line = strings.TrimRight(line, " \t\r\n")
		if line != "" || ir.blanksAllowed {
			return line, nil
		}
	}
}

func (dr *DirectReader) AllowBlank(allow bool) {
	dr.blanksAllowed = allow
}

func (ir *InteractiveReader) AllowBlank(allow bool) {
	ir.blanksAllowed = allow
}

// SetPrompt updates the prompt to the given text.
func (ir *InteractiveReader) SetPrompt(p string) {
	ir.prompt = p
	ir.rl.SetPrompt(p)
}

// Prompt gets the current prompt.
func (ir *InteractiveReader) Prompt() string {
	return ir.prompt
}
