package api

import (
	"net/http"

	"github.com/dekarrin/plyfin/server/result"
)

// HTTPCreateToken returns a HandlerFunc that gives a fresh token to the user
// the client is logged in as. Tokens revoked by a logout stay revoked.
//
// The request context must contain the logged-in user of the client.
func (api API) HTTPCreateToken() http.HandlerFunc {
	return api.Endpoint(api.epCreateToken)
}

func (api API) epCreateToken(req *http.Request) result.Result {
	return api.issueToken(requireUser(req), "refreshed token")
}
