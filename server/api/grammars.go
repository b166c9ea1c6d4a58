package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/result"
	"github.com/dekarrin/plyfin/server/serr"
)

// HTTPCreateGrammar returns a HandlerFunc that compiles and stores a new
// grammar.
//
// The context must contain the logged-in user of the client making the
// request.
func (api API) HTTPCreateGrammar() http.HandlerFunc {
	return api.Endpoint(api.epCreateGrammar)
}

func (api API) epCreateGrammar(req *http.Request) result.Result {
	user := requireUser(req)

	var body GrammarRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	opts := body.Options.apply(api.Backend.Defaults)
	rec, err := api.Backend.CreateGrammar(req.Context(), body.Name, body.Source, opts, user.ID)
	if err != nil {
		var gErr *plyerr.GrammarError
		if errors.As(err, &gErr) {
			details := GrammarErrorModel{
				Message: gErr.Msg,
				Symbols: gErr.Symbols,
				Line:    gErr.Line,
				Column:  gErr.Column,
			}
			return result.Err(http.StatusBadRequest, gErr.Error(), "user '%s' grammar %q: %s", user.Username, body.Name, err.Error()).
				WithDetails(details)
		} else if errors.Is(err, serr.ErrTooLarge) {
			return tooLarge(err)
		} else if errors.Is(err, serr.ErrAlreadyExists) {
			return result.Conflict(err.Error(), "user '%s': %s", user.Username, err.Error())
		} else if errors.Is(err, serr.ErrBadArgument) {
			return result.BadRequest(err.Error(), err.Error())
		}
		return result.InternalServerError(err.Error())
	}

	return result.Created(grammarModel(rec, true), "user '%s' created grammar %q", user.Username, rec.Name)
}

// HTTPGetAllGrammars returns a HandlerFunc that lists every stored grammar
// without its source.
func (api API) HTTPGetAllGrammars() http.HandlerFunc {
	return api.Endpoint(api.epGetAllGrammars)
}

func (api API) epGetAllGrammars(req *http.Request) result.Result {
	user := requireUser(req)

	all, err := api.Backend.GetAllGrammars(req.Context())
	if err != nil {
		return result.InternalServerError(err.Error())
	}

	resp := make([]GrammarModel, len(all))
	for i := range all {
		resp[i] = grammarModel(all[i], false)
	}

	return result.OK(resp, "user '%s' got all grammars", user.Username)
}

// HTTPGetGrammar returns a HandlerFunc that gets a single grammar with its
// source.
func (api API) HTTPGetGrammar() http.HandlerFunc {
	return api.Endpoint(api.epGetGrammar)
}

func (api API) epGetGrammar(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)

	rec, err := api.Backend.GetGrammar(req.Context(), id.String())
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}

	return result.OK(grammarModel(rec, true), "user '%s' got grammar %q", user.Username, rec.Name)
}

// HTTPDeleteGrammar returns a HandlerFunc that deletes a grammar. Only its
// creator or an admin may delete it.
func (api API) HTTPDeleteGrammar() http.HandlerFunc {
	return api.Endpoint(api.epDeleteGrammar)
}

func (api API) epDeleteGrammar(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)

	rec, err := api.Backend.GetGrammar(req.Context(), id.String())
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}

	if rec.Creator != user.ID && user.Role != dao.Admin {
		return result.Forbidden("user '%s' (role %s) delete grammar %q: forbidden", user.Username, user.Role, rec.Name)
	}

	_, err = api.Backend.DeleteGrammar(req.Context(), id.String())
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError(err.Error())
	}

	return result.NoContent("user '%s' deleted grammar %q", user.Username, rec.Name)
}

// HTTPParse returns a HandlerFunc that parses the text in the request with a
// stored grammar. Input that does not match gets an HTTP-422 whose details
// list each syntax error.
func (api API) HTTPParse() http.HandlerFunc {
	return api.Endpoint(api.epParse)
}

func (api API) epParse(req *http.Request) result.Result {
	id := requireIDParam(req)

	var body InputRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	tree, err := api.Backend.Parse(req.Context(), id.String(), body.Text)
	if err != nil {
		return inputErrorResult(err)
	}

	return result.OK(ParseResponse{Tree: tree, Compact: tree.Compact()}, "parsed %d bytes with grammar %s", len(body.Text), id)
}

// HTTPLex returns a HandlerFunc that splits the text in the request into the
// tokens of a stored grammar.
func (api API) HTTPLex() http.HandlerFunc {
	return api.Endpoint(api.epLex)
}

func (api API) epLex(req *http.Request) result.Result {
	id := requireIDParam(req)

	var body InputRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	toks, err := api.Backend.Lex(req.Context(), id.String(), body.Text)
	if err != nil {
		return inputErrorResult(err)
	}

	return result.OK(tokenModels(toks), "lexed %d tokens with grammar %s", len(toks), id)
}

func inputErrorResult(err error) result.Result {
	if errors.Is(err, serr.ErrNotFound) {
		return result.NotFound()
	}
	if errors.Is(err, serr.ErrTooLarge) {
		return tooLarge(err)
	}

	var pErr *plyerr.ParseError
	if errors.As(err, &pErr) {
		return result.UnprocessableEntity("input does not match the grammar", syntaxErrorModels(pErr), err.Error())
	}

	var tErr *plyerr.TokenizeError
	if errors.As(err, &tErr) {
		details := TokenizeErrorModel{
			Message: tErr.Error(),
			Char:    string(tErr.Char),
			Line:    tErr.Line,
			Column:  tErr.Column,
		}
		return result.UnprocessableEntity("input could not be split into tokens", details, err.Error())
	}

	return result.InternalServerError(fmt.Sprintf("could not use grammar: %s", err.Error()))
}

func tooLarge(err error) result.Result {
	return result.Err(http.StatusRequestEntityTooLarge, err.Error(), "%s", err.Error())
}
