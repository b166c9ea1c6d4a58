package svc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/dekarrin/plyfin"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/serr"
	"github.com/dekarrin/plyfin/stree"
)

// CreateGrammar compiles source with opts and, if it compiles, stores it under
// name. Names are compared in Unicode NFC form, so two names that only differ
// in how accented characters are composed collide. Returns the stored record.
//
// A source over Limits.MaxSourceBytes gives an error matching serr.ErrTooLarge.
// If the grammar does not compile, the error matches serr.ErrGrammar and can
// be converted with errors.As to the *plyerr.GrammarError that caused it. If a
// grammar with the same name exists, it matches serr.ErrAlreadyExists.
func (svc Service) CreateGrammar(ctx context.Context, name, source string, opts plyfin.Options, creator uuid.UUID) (dao.Grammar, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return dao.Grammar{}, serr.New("name cannot be blank", serr.ErrBadArgument)
	}
	if strings.TrimSpace(source) == "" {
		return dao.Grammar{}, serr.New("source cannot be blank", serr.ErrBadArgument)
	}
	if err := checkSize("grammar source", source, svc.Limits.MaxSourceBytes); err != nil {
		return dao.Grammar{}, err
	}

	compiled, err := plyfin.CompileCached(ctx, source, opts, svc.Cache)
	if err != nil {
		var gErr *plyerr.GrammarError
		if errors.As(err, &gErr) {
			return dao.Grammar{}, serr.New("", gErr, serr.ErrGrammar)
		}
		return dao.Grammar{}, serr.New("could not compile grammar", err)
	}

	rec, err := svc.DB.Grammars().Create(ctx, dao.Grammar{
		Name:             name,
		Source:           source,
		AutoFilterTokens: opts.AutoFilterTokens,
		KeepEmptyTrees:   opts.KeepEmptyTrees,
		Creator:          creator,
	})
	if err != nil {
		if errors.Is(err, dao.ErrConstraintViolation) {
			return dao.Grammar{}, serr.New(fmt.Sprintf("a grammar named %q already exists", name), serr.ErrAlreadyExists)
		}
		return dao.Grammar{}, serr.WrapDB("could not create grammar", err)
	}

	svc.loaded.put(rec.ID, compiled)
	return rec, nil
}

// GetGrammar returns the grammar record with the given ID.
//
// If no grammar with that ID exists, the error will match serr.ErrNotFound; if
// the ID is not valid, serr.ErrBadArgument.
func (svc Service) GetGrammar(ctx context.Context, id string) (dao.Grammar, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return dao.Grammar{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}

	rec, err := svc.DB.Grammars().GetByID(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Grammar{}, serr.ErrNotFound
		}
		return dao.Grammar{}, serr.WrapDB("could not get grammar", err)
	}

	return rec, nil
}

// GetAllGrammars returns every grammar record, ordered by name.
func (svc Service) GetAllGrammars(ctx context.Context) ([]dao.Grammar, error) {
	all, err := svc.DB.Grammars().GetAll(ctx)
	if err != nil {
		return nil, serr.WrapDB("", err)
	}
	return all, nil
}

// DeleteGrammar deletes the grammar with the given ID and returns the record
// as it was just before deletion.
func (svc Service) DeleteGrammar(ctx context.Context, id string) (dao.Grammar, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return dao.Grammar{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}

	rec, err := svc.DB.Grammars().Delete(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Grammar{}, serr.ErrNotFound
		}
		return dao.Grammar{}, serr.WrapDB("could not delete grammar", err)
	}

	svc.loaded.remove(uuidID)
	return rec, nil
}

// Compiled returns the compiled form of the grammar with the given ID.
func (svc Service) Compiled(ctx context.Context, id string) (*plyfin.Grammar, error) {
	rec, err := svc.GetGrammar(ctx, id)
	if err != nil {
		return nil, err
	}

	g, err := svc.load(ctx, rec)
	if err != nil {
		// the record compiled when it was created, so this is not the
		// client's fault.
		return nil, serr.New("stored grammar no longer compiles", err)
	}
	return g, nil
}

// Preload compiles every stored grammar that is not loaded yet so that the
// first request for each does not wait on it. It returns the number of loaded
// grammars afterwards. A grammar that fails to compile is skipped; all such
// failures are causes of the returned error.
func (svc Service) Preload(ctx context.Context) (int, error) {
	all, err := svc.GetAllGrammars(ctx)
	if err != nil {
		return svc.loaded.count(), err
	}

	var failed []error
	for _, rec := range all {
		if err := ctx.Err(); err != nil {
			return svc.loaded.count(), err
		}
		if _, err := svc.load(ctx, rec); err != nil {
			var gErr *plyerr.GrammarError
			if errors.As(err, &gErr) {
				err = serr.New("", err, serr.ErrGrammar)
			}
			failed = append(failed, fmt.Errorf("grammar %q: %w", rec.Name, err))
		}
	}

	if len(failed) > 0 {
		return svc.loaded.count(), serr.New(fmt.Sprintf("%d of %d stored grammars do not compile", len(failed), len(all)), failed...)
	}
	return svc.loaded.count(), nil
}

func (svc Service) load(ctx context.Context, rec dao.Grammar) (*plyfin.Grammar, error) {
	if g, ok := svc.loaded.get(rec.ID); ok {
		return g, nil
	}

	g, err := plyfin.CompileCached(ctx, rec.Source, OptionsOf(rec), svc.Cache)
	if err != nil {
		return nil, err
	}

	svc.loaded.put(rec.ID, g)
	return g, nil
}

// Parse parses text with the grammar with the given ID.
//
// If text does not match the grammar, the error matches serr.ErrInput and can
// be converted with errors.As to the *plyerr.ParseError or
// *plyerr.TokenizeError that caused it. Text over Limits.MaxInputBytes gives
// an error matching serr.ErrTooLarge.
func (svc Service) Parse(ctx context.Context, id string, text string) (*stree.Tree, error) {
	if err := checkSize("input", text, svc.Limits.MaxInputBytes); err != nil {
		return nil, err
	}
	g, err := svc.Compiled(ctx, id)
	if err != nil {
		return nil, err
	}

	tree, err := g.Parse(text)
	if err != nil {
		return nil, inputError(err)
	}
	return tree, nil
}

// Lex splits text into the tokens of the grammar with the given ID.
func (svc Service) Lex(ctx context.Context, id string, text string) ([]stree.Token, error) {
	if err := checkSize("input", text, svc.Limits.MaxInputBytes); err != nil {
		return nil, err
	}
	g, err := svc.Compiled(ctx, id)
	if err != nil {
		return nil, err
	}

	toks, err := g.Lex(text)
	if err != nil {
		return nil, inputError(err)
	}
	return toks, nil
}

// OptionsOf returns the compile options stored in rec.
func OptionsOf(rec dao.Grammar) plyfin.Options {
	return plyfin.Options{
		AutoFilterTokens: rec.AutoFilterTokens,
		KeepEmptyTrees:   rec.KeepEmptyTrees,
	}
}

func inputError(err error) error {
	var pErr *plyerr.ParseError
	var tErr *plyerr.TokenizeError
	if errors.As(err, &pErr) || errors.As(err, &tErr) {
		return serr.New("", err, serr.ErrInput)
	}
	return serr.New("could not parse input", err)
}

// checkSize returns an error matching serr.ErrTooLarge if text is longer than
// max bytes. A max of 0 allows any size.
func checkSize(what, text string, max int) error {
	if max > 0 && len(text) > max {
		return serr.New(fmt.Sprintf("%s is %d bytes, over the limit of %d", what, len(text), max), serr.ErrTooLarge)
	}
	return nil
}
