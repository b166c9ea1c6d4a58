// Package middle contains middleware for use with the plyfin server.
package middle

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/result"
	"github.com/dekarrin/plyfin/server/token"
)

// Middleware is a function that takes a handler and returns a new handler which
// wraps the given one and provides some additional functionality.
type Middleware func(next http.Handler) http.Handler

type ctxKey int

const userKey ctxKey = iota

// WithUser returns a copy of ctx that carries u as the logged-in user.
func WithUser(ctx context.Context, u dao.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the logged-in user that an Authenticator stored in ctx. ok
// is false if the client did not log in.
func UserFrom(ctx context.Context) (u dao.User, ok bool) {
	u, ok = ctx.Value(userKey).(dao.User)
	return u, ok
}

// Authenticator checks the bearer token of requests against the users in
// Users.
type Authenticator struct {
	Users  dao.UserRepository
	Secret []byte

	// UnauthDelay is waited before a request is rejected.
	UnauthDelay time.Duration

	// Log gets a warning for every rejected request. It may be nil.
	Log logrus.FieldLogger
}

// Required returns middleware that passes a request on only if it carries a
// valid token, with the token's user in its context. Other requests get an
// HTTP-401.
func (a Authenticator) Required() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user, err := a.authenticate(req)
			if err != nil {
				a.reject(w, req, err)
				return
			}
			next.ServeHTTP(w, req.WithContext(WithUser(req.Context(), user)))
		})
	}
}

// Optional returns middleware that puts the token's user in the context of a
// request when it carries a valid token and passes every request on.
func (a Authenticator) Optional() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if user, err := a.authenticate(req); err == nil {
				req = req.WithContext(WithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	}
}

func (a Authenticator) authenticate(req *http.Request) (dao.User, error) {
	tok, err := token.Get(req)
	if err != nil {
		return dao.User{}, err
	}
	return token.Validate(req.Context(), tok, a.Secret, a.Users)
}

func (a Authenticator) reject(w http.ResponseWriter, req *http.Request, err error) {
	r := result.Unauthorized("", "%s", err.Error())
	if a.Log != nil {
		a.Log.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"status": r.Status,
		}).Warn(r.InternalMsg)
	}
	time.Sleep(a.UnauthDelay)
	r.WriteResponse(w)
}
