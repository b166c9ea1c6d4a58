package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/dekarrin/plyfin"
)

// config is the contents of a plyfi.toml file. Every key is optional.
type config struct {
	Grammar string `toml:"grammar"`
	Cache   string `toml:"cache"`
	Format  string `toml:"format"`

	AutoFilterTokens *bool `toml:"auto_filter_tokens"`
	KeepEmptyTrees   *bool `toml:"keep_empty_trees"`
}

func loadConfig(fsys afero.Fs, path string) (config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return config{}, err
	}

	var cfg config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return config{}, fmt.Errorf("%s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return config{}, fmt.Errorf("%s: unknown key %q", path, undec[0].String())
	}

	if cfg.Format != "" {
		if _, ok := formatters[cfg.Format]; !ok {
			return config{}, fmt.Errorf("%s: unknown format %q", path, cfg.Format)
		}
	}

	return cfg, nil
}

// apply returns base with the options set in the config changed.
func (cfg config) apply(base plyfin.Options) plyfin.Options {
	if cfg.AutoFilterTokens != nil {
		base.AutoFilterTokens = *cfg.AutoFilterTokens
	}
	if cfg.KeepEmptyTrees != nil {
		base.KeepEmptyTrees = *cfg.KeepEmptyTrees
	}
	return base
}
