package api

import (
	"net/http"

	"github.com/dekarrin/plyfin/internal/version"
	"github.com/dekarrin/plyfin/server/middle"
	"github.com/dekarrin/plyfin/server/result"
)

// HTTPGetInfo returns a HandlerFunc that retrieves information on the API and
// server.
//
// The client does not need to be logged in; if it is, the log entry names the
// user.
func (api API) HTTPGetInfo() http.HandlerFunc {
	return api.Endpoint(api.epGetInfo)
}

func (api API) epGetInfo(req *http.Request) result.Result {
	var resp InfoModel
	resp.Version.Server = version.ServerCurrent
	resp.Version.Plyfin = version.Current

	userStr := "unauthed client"
	if user, ok := middle.UserFrom(req.Context()); ok {
		userStr = "user '" + user.Username + "'"
	}
	return result.OK(resp, "%s got API info", userStr)
}
