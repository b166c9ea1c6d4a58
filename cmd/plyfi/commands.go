package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dekarrin/plyfin/internal/repl"
	"github.com/dekarrin/plyfin/stree"
)

var formatters = map[string]func(t *stree.Tree) (string, error){
	"text": func(t *stree.Tree) (string, error) {
		return t.String() + "\n", nil
	},
	"json": func(t *stree.Tree) (string, error) {
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	},
	"yaml": func(t *stree.Tree) (string, error) {
		data, err := yaml.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(data), nil
	},
}

func (c *rootCommand) parseCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse [FILE|-]",
		Short: "Parse input and print the tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") && c.cfg.Format != "" {
				format = c.cfg.Format
			}
			formatter, ok := formatters[format]
			if !ok {
				return initError(fmt.Errorf("unknown format %q; must be one of text, json, yaml", format))
			}

			g, err := c.loadGrammar(cmd.Context())
			if err != nil {
				return err
			}
			text, err := c.readInput(args)
			if err != nil {
				return err
			}

			tree, err := g.Parse(text)
			if err != nil {
				return inputError(err)
			}

			output, err := formatter(tree)
			if err != nil {
				return initError(fmt.Errorf("format tree: %w", err))
			}
			fmt.Fprint(c.out, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	return cmd
}

func (c *rootCommand) lexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lex [FILE|-]",
		Short: "Print the tokens of the input",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.loadGrammar(cmd.Context())
			if err != nil {
				return err
			}
			text, err := c.readInput(args)
			if err != nil {
				return err
			}

			toks, err := g.Lex(text)
			for _, tok := range toks {
				fmt.Fprintf(c.out, "%s %q %s\n", tok.Type, tok.Value, posColor.Sprintf("%d:%d", tok.Line, tok.Column))
			}
			if err != nil {
				return inputError(err)
			}
			return nil
		},
	}
}

func (c *rootCommand) tableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the parse table of the grammar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.loadGrammar(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(c.out, g.TableString())
			for _, w := range g.Warnings() {
				warnColor.Fprint(c.errOut, "WARNING: ")
				fmt.Fprintln(c.errOut, w)
			}
			return nil
		},
	}
}

func (c *rootCommand) replCommand() *cobra.Command {
	var forceDirect bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Parse lines typed interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.loadGrammar(cmd.Context())
			if err != nil {
				return err
			}

			// readline only takes over when talking to the real terminal
			if !isTerminal(os.Stdin) {
				forceDirect = true
			}
			s, err := repl.New(c.in, c.out, g, forceDirect)
			if err != nil {
				return initError(err)
			}
			defer s.Close()

			if err := s.RunUntilQuit(); err != nil {
				return initError(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&forceDirect, "direct", "d", false, "read lines directly instead of through readline")

	return cmd
}
