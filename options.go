package plyfin

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Options control how parse results are shaped. They do not change the
// language a grammar accepts.
type Options struct {
	// AutoFilterTokens drops token leaves from every rule match that has more
	// than one child, so punctuation does not clutter the tree.
	AutoFilterTokens bool

	// KeepEmptyTrees keeps subtrees that have no children. If false they are
	// removed after parsing.
	KeepEmptyTrees bool
}

// DefaultOptions returns the options used when none are given: tokens are
// filtered and empty trees are kept.
func DefaultOptions() Options {
	return Options{
		AutoFilterTokens: true,
		KeepEmptyTrees:   true,
	}
}

// fingerprint is the part of a cache key that depends on the options.
func (o Options) fingerprint() string {
	return fmt.Sprintf("filter=%t;keepempty=%t", o.AutoFilterTokens, o.KeepEmptyTrees)
}

type marshaledOptions struct {
	AutoFilterTokens *bool `toml:"auto_filter_tokens"`
	KeepEmptyTrees   *bool `toml:"keep_empty_trees"`
}

// UnmarshalOptions reads options from TOML data. Keys that are not present
// keep the value they have in base.
func UnmarshalOptions(tomlData []byte, base Options) (Options, error) {
	var m marshaledOptions
	md, err := toml.Decode(string(tomlData), &m)
	if err != nil {
		return base, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return base, fmt.Errorf("unknown option %q", undec[0].String())
	}

	opts := base
	if m.AutoFilterTokens != nil {
		opts.AutoFilterTokens = *m.AutoFilterTokens
	}
	if m.KeepEmptyTrees != nil {
		opts.KeepEmptyTrees = *m.KeepEmptyTrees
	}
	return opts, nil
}

// LoadOptionsFile reads options from the TOML file at path. Keys that are not
// present have their default value.
func LoadOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}

	opts, err := UnmarshalOptions(data, DefaultOptions())
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}
