package plyfin

import (
	"context"
	"errors"
	"fmt"

	"github.com/dekarrin/plyfin/cache"
	"github.com/dekarrin/plyfin/internal/version"
)

// CacheKey returns the key that CompileCached stores the compiled form of
// source under.
func CacheKey(source string, opts Options) string {
	return cache.Key(version.Current, source, opts.fingerprint())
}

// CompileCached is like Compile but first looks for an already compiled
// grammar in c, and stores the result in c when there is none. An entry that
// cannot be decoded is treated as missing and replaced. If c is nil, it is the
// same as Compile.
func CompileCached(ctx context.Context, source string, opts Options, c cache.Cache) (*Grammar, error) {
	if c == nil {
		return Compile(source, opts)
	}

	key := CacheKey(source, opts)

	data, err := c.Get(ctx, key)
	if err == nil {
		g := &Grammar{}
		if decErr := g.UnmarshalBinary(data); decErr == nil {
			return g, nil
		}
	} else if !errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("reading compiled grammar from cache: %w", err)
	}

	g, err := Compile(source, opts)
	if err != nil {
		return nil, err
	}

	data, err = g.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding compiled grammar: %w", err)
	}
	if err := c.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("storing compiled grammar in cache: %w", err)
	}

	return g, nil
}
