package api

import (
	"errors"
	"net/http"

	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/result"
	"github.com/dekarrin/plyfin/server/serr"
	"github.com/dekarrin/plyfin/server/token"
)

// HTTPCreateLogin returns a HandlerFunc that checks a username and password
// and gives back a token for that user. Bad credentials get an HTTP-401.
func (api API) HTTPCreateLogin() http.HandlerFunc {
	return api.Endpoint(api.epCreateLogin)
}

func (api API) epCreateLogin(req *http.Request) result.Result {
	var body LoginRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if msg := body.missing(); msg != "" {
		return result.BadRequest(msg+": property is empty or missing from request", "login without "+msg)
	}

	user, err := api.Backend.Login(req.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, serr.ErrBadCredentials) {
			return result.Unauthorized(serr.ErrBadCredentials.Error(), "login as '%s': %s", body.Username, err.Error())
		}
		return result.InternalServerError(err.Error())
	}

	return api.issueToken(user, "logged in")
}

// HTTPDeleteLogin returns a HandlerFunc that revokes every token of a user.
// Users may log themselves out; only an admin may log out someone else.
//
// The request context must contain the logged-in user of the client.
func (api API) HTTPDeleteLogin() http.HandlerFunc {
	return api.Endpoint(api.epDeleteLogin)
}

func (api API) epDeleteLogin(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)

	self := id == user.ID
	if !self && user.Role != dao.Admin {
		return result.Forbidden("%s '%s' logout of user %s: forbidden", user.Role, user.Username, id)
	}

	target, err := api.Backend.Logout(req.Context(), id)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return result.NotFound()
		}
		return result.InternalServerError("could not log out user: " + err.Error())
	}

	if self {
		return result.NoContent("user '%s' logged out (token epoch %d)", user.Username, target.Epoch)
	}
	return result.NoContent("admin '%s' logged out user '%s' (token epoch %d)", user.Username, target.Username, target.Epoch)
}

// issueToken gives a Result carrying a new token for user.
func (api API) issueToken(user dao.User, action string) result.Result {
	tok, err := token.Generate(api.Secret, user)
	if err != nil {
		return result.InternalServerError("could not generate JWT: " + err.Error())
	}

	resp := LoginResponse{
		Token:  tok,
		UserID: user.ID.String(),
		Role:   user.Role.String(),
	}
	return result.Created(resp, "user '%s' %s", user.Username, action)
}
