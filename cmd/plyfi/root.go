package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dekarrin/plyfin"
	"github.com/dekarrin/plyfin/cache"
	"github.com/dekarrin/plyfin/cache/sqlite"
	"github.com/dekarrin/plyfin/internal/gsource"
	"github.com/dekarrin/plyfin/internal/version"
	"github.com/dekarrin/plyfin/plyerr"
)

const defaultConfigFile = "plyfi.toml"

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	posColor  = color.New(color.FgCyan)
)

// exitError carries the exit code the program should end with.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	return e.err.Error()
}

func (e exitError) Unwrap() error {
	return e.err
}

func initError(err error) error {
	return exitError{code: ExitInitError, err: err}
}

func inputError(err error) error {
	return exitError{code: ExitInputError, err: err}
}

// rootCommand holds everything shared by the plyfi subcommands.
type rootCommand struct {
	cmd    *cobra.Command
	logger *logrus.Logger
	fs     afero.Fs

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	grammarFile string
	configFile  string
	cacheFile   string
	noFilter    bool
	dropEmpty   bool
	trace       bool

	cfg config
}

// newRootCommand creates the plyfi command. If fsys is nil, the OS filesystem
// is used.
func newRootCommand(fsys afero.Fs, in io.Reader, out, errOut io.Writer) *rootCommand {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	logger := logrus.New()
	logger.SetOutput(errOut)
	logger.SetLevel(logrus.InfoLevel)

	c := &rootCommand{
		logger: logger,
		fs:     fsys,
		in:     in,
		out:    out,
		errOut: errOut,
	}

	c.cmd = &cobra.Command{
		Use:               "plyfi",
		Short:             "Parse text with a plyfin grammar",
		Version:           version.Current,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}
	c.cmd.SetVersionTemplate("{{.Version}}\n")
	c.cmd.SetIn(in)
	c.cmd.SetOut(out)
	c.cmd.SetErr(errOut)
	c.cmd.PersistentFlags().AddFlagSet(c.persistentFlagSet())

	c.cmd.AddCommand(
		c.parseCommand(),
		c.lexCommand(),
		c.tableCommand(),
		c.replCommand(),
	)

	if !isTerminal(errOut) {
		errColor.DisableColor()
		warnColor.DisableColor()
		posColor.DisableColor()
	}

	return c
}

func (c *rootCommand) persistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&c.grammarFile, "grammar", "g", "", "grammar file to parse with")
	flags.StringVarP(&c.configFile, "config", "c", "", "TOML config file (default \""+defaultConfigFile+"\" if present)")
	flags.StringVar(&c.cacheFile, "cache", "", "SQLite file to cache compiled grammars in")
	flags.BoolVar(&c.noFilter, "no-filter", false, "keep token leaves in matches with more than one child")
	flags.BoolVar(&c.dropEmpty, "drop-empty", false, "remove subtrees that have no children")
	flags.BoolVar(&c.trace, "trace", false, "log each parser step")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	if c.trace {
		c.logger.SetLevel(logrus.DebugLevel)
	}

	cfgPath := c.configFile
	explicit := cfgPath != ""
	if !explicit {
		cfgPath = defaultConfigFile
	}

	cfg, err := loadConfig(c.fs, cfgPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return initError(err)
	}
	c.logger.WithField("file", cfgPath).Debug("loaded config")
	c.cfg = cfg
	return nil
}

// execute runs the command with the given arguments and returns the exit code.
func (c *rootCommand) execute(args []string) int {
	c.cmd.SetArgs(args)

	err := c.cmd.ExecuteContext(context.Background())
	if err == nil {
		return ExitSuccess
	}

	c.printError(err)

	var exitErr exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	// flag and argument errors from cobra itself
	return ExitInitError
}

func (c *rootCommand) printError(err error) {
	var parseErr *plyerr.ParseError
	if errors.As(err, &parseErr) {
		for _, synErr := range parseErr.Errors {
			errColor.Fprint(c.errOut, "ERROR: ")
			fmt.Fprintln(c.errOut, synErr.Error())
			if len(synErr.Expected) > 0 {
				fmt.Fprintf(c.errOut, "       expected one of: %v\n", synErr.Expected)
			}
		}
		return
	}

	errColor.Fprint(c.errOut, "ERROR: ")
	fmt.Fprintln(c.errOut, err.Error())
}

// options gives the options to compile with. Config file settings override
// those from the grammar's own options file, and flags override both.
func (c *rootCommand) options(base plyfin.Options) plyfin.Options {
	opts := c.cfg.apply(base)
	if c.noFilter {
		opts.AutoFilterTokens = false
	}
	if c.dropEmpty {
		opts.KeepEmptyTrees = false
	}
	return opts
}

// loadGrammar reads and compiles the grammar, going through the cache if one
// is set.
func (c *rootCommand) loadGrammar(ctx context.Context) (*plyfin.Grammar, error) {
	path := c.grammarFile
	if path == "" {
		path = c.cfg.Grammar
	}
	if path == "" {
		return nil, initError(fmt.Errorf("no grammar given; use -g or set grammar in the config file"))
	}

	src, err := gsource.Load(c.fs, path)
	if err != nil {
		return nil, initError(err)
	}
	opts := c.options(src.Options)

	log := c.logger.WithFields(logrus.Fields{
		"grammar":            path,
		"auto_filter_tokens": opts.AutoFilterTokens,
		"keep_empty_trees":   opts.KeepEmptyTrees,
	})
	if src.OptionsPath != "" {
		log = log.WithField("options_file", src.OptionsPath)
	}

	var gc cache.Cache
	cachePath := c.cacheFile
	if cachePath == "" {
		cachePath = c.cfg.Cache
	}
	if cachePath != "" {
		sc, err := sqlite.Open(cachePath)
		if err != nil {
			return nil, initError(fmt.Errorf("open cache: %w", err))
		}
		defer sc.Close()
		gc = sc
		log = log.WithField("cache", cachePath)
	}

	g, err := plyfin.CompileCached(ctx, src.Text, opts, gc)
	if err != nil {
		return nil, initError(fmt.Errorf("%s: %w", path, err))
	}
	log.Debug("grammar ready")

	if c.trace {
		g.RegisterTraceListener(func(s string) {
			c.logger.Debug(s)
		})
	}

	return g, nil
}

// readInput reads the contents of the file named by args, or of stdin if there
// is none or it is "-".
func (c *rootCommand) readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return "", initError(fmt.Errorf("read stdin: %w", err))
		}
		return string(data), nil
	}

	data, err := afero.ReadFile(c.fs, args[0])
	if err != nil {
		return "", initError(err)
	}
	return string(data), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
