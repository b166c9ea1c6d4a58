// Package repl runs an interactive session that parses each line of input with
// a compiled grammar and prints the result.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/dekarrin/plyfin"
	"github.com/dekarrin/plyfin/internal/input"
	"github.com/dekarrin/plyfin/internal/version"
)

const (
	consoleOutputWidth = 80
	defaultPrompt      = "plyfi> "
)

const helpText = `Each line typed is parsed with the grammar and the resulting tree is printed.
Lines starting with ':' are commands:
  :lex TEXT   show the tokens of TEXT
  :table      show the parse table
  :rules      show the rules of the grammar
  :help       show this message
  :quit       end the session`

// Session holds what is needed to parse lines read from an input stream and
// write the results to an output stream.
type Session struct {
	g           *plyfin.Grammar
	in          input.Reader
	out         *bufio.Writer
	forceDirect bool
	running     bool
}

// New creates a Session that parses with g. If in is nil, stdin is used; if out
// is nil, stdout is used. Readline is used for input only when reading stdin
// and writing stdout and forceDirect is not set.
func New(in io.Reader, out io.Writer, g *plyfin.Grammar, forceDirect bool) (*Session, error) {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	s := &Session{
		g:           g,
		out:         bufio.NewWriter(out),
		forceDirect: forceDirect,
	}

	useReadline := !forceDirect && in == os.Stdin && out == os.Stdout
	if useReadline {
		ir, err := input.NewInteractiveReader(defaultPrompt, "")
		if err != nil {
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
		s.in = ir
	} else {
		s.in = input.NewDirectReader(in)
	}

	return s, nil
}

// Close releases the input reader.
func (s *Session) Close() error {
	if s.running {
		return fmt.Errorf("cannot close a running session")
	}

	if err := s.in.Close(); err != nil {
		return fmt.Errorf("close input reader: %w", err)
	}
	return nil
}

func (s *Session) write(str string) error {
	if _, err := s.out.WriteString(str); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}

// RunUntilQuit reads and handles lines until end of input or :quit.
func (s *Session) RunUntilQuit() error {
	intro := "plyfin " + version.Current + "\n"
	if s.forceDirect {
		intro += "(direct input mode)\n"
	}
	intro += "Type :help for commands.\n"
	if err := s.write(intro); err != nil {
		return err
	}

	s.running = true
	defer func() {
		s.running = false
	}()

	for s.running {
		line, err := s.in.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("get input line: %w", err)
		}

		output, err := s.handle(line)
		if err != nil {
			output = rosed.Edit(err.Error()).Wrap(consoleOutputWidth).String() + "\n"
		}
		if err := s.write(output); err != nil {
			return err
		}
	}

	return s.write("Goodbye\n")
}

// handle returns the output for one line of input. An error is a problem with
// the line, not with the session.
func (s *Session) handle(line string) (string, error) {
	if !strings.HasPrefix(line, ":") {
		tree, err := s.g.Parse(line)
		if err != nil {
			return "", err
		}
		return tree.String() + "\n", nil
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	switch strings.ToLower(cmd) {
	case "quit", "q", "exit":
		s.running = false
		return "", nil
	case "help", "h":
		return helpText + "\n", nil
	case "table":
		return s.g.TableString() + "\n", nil
	case "rules":
		var sb strings.Builder
		for _, r := range s.g.Rules() {
			sb.WriteString(r.String())
			sb.WriteRune('\n')
		}
		return sb.String(), nil
	case "lex":
		toks, err := s.g.Lex(arg)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, tok := range toks {
			sb.WriteString(tok.Describe())
			sb.WriteRune('\n')
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unknown command %q; type :help for commands", ":"+cmd)
	}
}
