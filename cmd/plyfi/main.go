/*
Plyfi compiles a grammar and uses it to parse text.

Usage:

	plyfi [flags] COMMAND [args]

The commands are:

	parse [FILE|-]
		Parse the contents of FILE, or stdin if FILE is "-" or not given, and
		print the resulting tree. Use --format to pick text, json, or yaml.

	lex [FILE|-]
		Print the tokens of FILE (or stdin), one per line, as TYPE "value"
		line:col.

	table
		Print the LR parse table of the grammar followed by any shift/reduce
		conflicts found while building it.

	repl
		Start an interactive session that parses each line typed. Type :help
		once in a session for its commands and :quit to leave.

The flags are:

	-g/--grammar FILE
		The grammar to use. Files ending in .md have the contents of their
		"plyfin" code blocks used as the grammar. A file next to the grammar
		with the same name and a .toml extension supplies options.

	-c/--config FILE
		TOML config file. Defaults to "plyfi.toml" in the current directory if
		that exists. It may set grammar, cache, format, auto_filter_tokens and
		keep_empty_trees.

	--cache FILE
		SQLite database to keep compiled grammars in between runs.

	--no-filter
		Keep token leaves in rule matches with more than one child.

	--drop-empty
		Remove subtrees that have no children.

	--trace
		Log every parser step at debug level to stderr.

	-v/--version
		Give the current version of plyfin and then exit.
*/
package main

import (
	"os"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitInputError indicates that the text given to parse or lex was not
	// accepted by the grammar.
	ExitInputError

	// ExitInitError indicates that the program could not get as far as
	// reading input, such as when the grammar does not compile.
	ExitInitError
)

func main() {
	root := newRootCommand(nil, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(root.execute(os.Args[1:]))
}
